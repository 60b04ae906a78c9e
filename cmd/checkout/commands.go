package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourorg/checkout-orchestrator/internal/classifier"
	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/payment"
	"github.com/yourorg/checkout-orchestrator/internal/preset"
	"github.com/yourorg/checkout-orchestrator/internal/session"
)

// errNotCompleted makes the process exit non-zero after a failure outcome
// has already been printed.
var errNotCompleted = errors.New("operation did not complete")

type globalFlags struct {
	configFile   string
	messagesFile string
	jsonOutput   bool
}

// appFactory builds the app for a command. Tests replace it.
type appFactory func(cmd *cobra.Command) (*app, error)

func newRootCommand(build appFactory, flags *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:           "checkout",
		Short:         "Checkout orchestration client",
		Long:          `checkout loads payment sessions, charges preset accounts and deletes stored accounts against a payment gateway.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Config file (default ./checkout.yaml)")
	root.PersistentFlags().StringVar(&flags.messagesFile, "messages", "", "JSON file of localized interaction messages")
	root.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Print results as JSON")

	root.AddCommand(
		newSessionCommand(build, flags),
		newPresetCommand(build, flags),
		newDeleteCommand(build, flags),
	)
	return root
}

func newSessionCommand(build appFactory, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "session <list-url>",
		Short: "Load a payment session and list the networks this client can pay with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				res := model.Failure(session.ErrorInfoFromLoadError(err))
				d := a.classifier.Classify(classifier.FlowCharge, s.ListResult.OperationType, res)
				return printDecision(a.out, d, a.translate, flags.jsonOutput)
			}
			if flags.jsonOutput {
				return writeJSON(a.out, sessionView(s, a.payments.Names()))
			}
			return printSession(a.out, s, a.payments.Names())
		},
	}
}

func newPresetCommand(build appFactory, flags *globalFlags) *cobra.Command {
	var selectOnly bool
	cmd := &cobra.Command{
		Use:   "preset <list-url>",
		Short: "Charge the preset account of a PRESET session",
		Long: `preset charges the account the merchant preset for the session. With
--select-only nothing is charged; the interaction stored in the preset
account's redirect parameters is reported instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if selectOnly {
				res := selectPreset(cmd.Context(), a.resolver, args[0])
				d := a.classifier.Classify(classifier.FlowCharge, model.OperationPreset, res)
				return printDecision(a.out, d, a.translate, flags.jsonOutput)
			}

			svc, err := a.presetService()
			if err != nil {
				return err
			}
			d, err := svc.Charge(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printDecision(a.out, d, a.translate, flags.jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&selectOnly, "select-only", false, "Report the preset selection without charging it")
	return cmd
}

func selectPreset(ctx context.Context, r *session.Resolver, listURL string) model.PaymentResult {
	s, err := r.Resolve(ctx, listURL)
	if err != nil {
		return model.Failure(session.ErrorInfoFromLoadError(err))
	}
	if s.PresetAccount == nil {
		return model.Failure(model.NewClientSideError(preset.ErrMissingPreset))
	}
	return preset.BuildSelectionResult(*s.PresetAccount)
}

func newDeleteCommand(build appFactory, flags *globalFlags) *cobra.Command {
	var (
		registration bool
		recurrence   bool
		listChannel  string
	)
	cmd := &cobra.Command{
		Use:   "delete <list-url> <account-code>",
		Short: "Delete the registration of a stored account",
		Long: `delete removes a stored account of the session. Without --registration or
--recurrence no body is sent and the gateway picks the scope from the session channel.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			s, err := a.resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				res := model.Failure(session.ErrorInfoFromLoadError(err))
				return printDecision(a.out, a.classifier.Classify(classifier.FlowDelete, "", res), a.translate, flags.jsonOutput)
			}

			account, ok := findAccount(s.Accounts, args[1])
			if !ok {
				return fmt.Errorf("session has no stored %s account", args[1])
			}

			var body *gateway.DeletionBody
			if cmd.Flags().Changed("registration") || cmd.Flags().Changed("recurrence") {
				body = &gateway.DeletionBody{DeleteRegistration: &registration, DeleteRecurrence: &recurrence}
			}
			scope := gateway.InferDeletionScope(body, listChannel)
			a.log.Info("deleting stored account",
				"network_code", account.Code,
				"registration", scope.Registration,
				"recurrence", scope.Recurrence,
			)

			svc, err := a.payments.CreateService(account.Code, account.Method, account.Providers)
			if err != nil {
				return err
			}
			out := svc.Delete(cmd.Context(), payment.DeletionRequest{
				Links:         account.Links,
				Body:          body,
				OperationType: s.ListResult.OperationType,
			})
			d := a.classifier.Classify(classifier.FlowDelete, s.ListResult.OperationType, out.Result)
			return printDecision(a.out, d, a.translate, flags.jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&registration, "registration", false, "Delete the account registration")
	cmd.Flags().BoolVar(&recurrence, "recurrence", false, "Delete the recurring registration")
	cmd.Flags().StringVar(&listChannel, "list-channel", "", "Channel the session was created with, used to predict the scope")
	return cmd
}

func findAccount(accounts []model.AccountRegistration, code string) (model.AccountRegistration, bool) {
	for _, acc := range accounts {
		if strings.EqualFold(acc.Code, code) {
			return acc, true
		}
	}
	return model.AccountRegistration{}, false
}

type decisionView struct {
	Interaction string              `json:"interaction"`
	ResultInfo  string              `json:"resultInfo"`
	Route       string              `json:"route"`
	Rule        string              `json:"rule,omitempty"`
	ListAction  string              `json:"listAction"`
	Message     *classifier.Message `json:"message,omitempty"`
	Result      model.PaymentResult `json:"result"`
}

func printDecision(w io.Writer, d classifier.Decision, t classifier.Translator, asJSON bool) error {
	v := decisionView{
		Interaction: d.Interaction.String(),
		ResultInfo:  d.ResultInfo,
		Route:       d.Route.String(),
		Rule:        d.Rule,
		ListAction:  classifier.ListActionFor(d.Flow, d.Interaction).String(),
		Result:      d.Result,
	}
	if m, ok := classifier.Localize(t, d.Flow, d.Interaction); ok {
		v.Message = &m
	}

	if asJSON {
		if err := writeJSON(w, v); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Interaction:\t%s\n", v.Interaction)
		if v.ResultInfo != "" {
			fmt.Fprintf(tw, "Result info:\t%s\n", v.ResultInfo)
		}
		fmt.Fprintf(tw, "Route:\t%s\n", v.Route)
		if v.Rule != "" {
			fmt.Fprintf(tw, "Rule:\t%s\n", v.Rule)
		}
		fmt.Fprintf(tw, "List action:\t%s\n", v.ListAction)
		if v.Message != nil {
			fmt.Fprintf(tw, "Message:\t%s: %s\n", v.Message.Title, v.Message.Text)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if !d.Result.IsSuccess() {
		return errNotCompleted
	}
	return nil
}

type networkView struct {
	Code     string `json:"code"`
	Method   string `json:"method"`
	Label    string `json:"label,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

type sessionJSON struct {
	OperationType string        `json:"operationType"`
	Networks      []networkView `json:"networks"`
	Accounts      []networkView `json:"accounts"`
	PresetAccount *networkView  `json:"presetAccount,omitempty"`
	Services      []string      `json:"services"`
}

// sessionView lists what the session offers next to the payment services,
// in lookup order, that decided it.
func sessionView(s session.Session, services []string) sessionJSON {
	v := sessionJSON{
		OperationType: s.ListResult.OperationType,
		Services:      services,
		Networks:      make([]networkView, 0, len(s.Networks)),
		Accounts:      make([]networkView, 0, len(s.Accounts)),
	}
	for _, n := range s.Networks {
		v.Networks = append(v.Networks, networkView{
			Code: n.Code, Method: n.Method, Label: n.Label,
			Selected: n.Selected != nil && *n.Selected,
		})
	}
	for _, acc := range s.Accounts {
		label := acc.Label
		if acc.MaskedAccount.Number != "" {
			label = acc.MaskedAccount.Number
		}
		v.Accounts = append(v.Accounts, networkView{Code: acc.Code, Method: acc.Method, Label: label})
	}
	if p := s.PresetAccount; p != nil {
		v.PresetAccount = &networkView{Code: p.Code, Method: p.Method}
	}
	return v
}

func printSession(w io.Writer, s session.Session, services []string) error {
	v := sessionView(s, services)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Operation:\t%s\n", v.OperationType)
	fmt.Fprintf(tw, "Services:\t%s\n", strings.Join(v.Services, ", "))
	for _, n := range v.Networks {
		mark := ""
		if n.Selected {
			mark = "selected"
		}
		fmt.Fprintf(tw, "network\t%s\t%s\t%s\t%s\n", n.Code, n.Method, n.Label, mark)
	}
	for _, acc := range v.Accounts {
		fmt.Fprintf(tw, "account\t%s\t%s\t%s\t\n", acc.Code, acc.Method, acc.Label)
	}
	if v.PresetAccount != nil {
		fmt.Fprintf(tw, "preset\t%s\t%s\t\t\n", v.PresetAccount.Code, v.PresetAccount.Method)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
