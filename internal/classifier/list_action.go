package classifier

import (
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
)

// ListAction is how the network list reacts to an outcome that bubbled up.
type ListAction int

const (
	ActionDismiss ListAction = iota
	ActionReload
	ActionReloadWithError
	ActionShowNotice
)

func (a ListAction) String() string {
	switch a {
	case ActionReload:
		return "reload"
	case ActionReloadWithError:
		return "reload_with_error"
	case ActionShowNotice:
		return "show_notice"
	default:
		return "dismiss"
	}
}

// ListActionFor returns the list-level reaction for flow.
func ListActionFor(flow Flow, i interaction.Interaction) ListAction {
	switch flow {
	case FlowUpdate:
		return updateAction(i)
	case FlowDelete:
		return deleteAction(i)
	default:
		return chargeAction(i)
	}
}

func chargeAction(i interaction.Interaction) ListAction {
	switch i.Code {
	case interaction.CodeTryOtherAccount, interaction.CodeTryOtherNetwork:
		return ActionReloadWithError
	case interaction.CodeReload:
		return ActionReload
	default:
		return ActionDismiss
	}
}

func updateAction(i interaction.Interaction) ListAction {
	switch i.Code {
	case interaction.CodeProceed:
		switch i.Reason {
		case interaction.ReasonPending:
			return ActionShowNotice
		case interaction.ReasonOK:
			return ActionReload
		default:
			return ActionDismiss
		}
	case interaction.CodeTryOtherAccount, interaction.CodeTryOtherNetwork, interaction.CodeRetry:
		return ActionReloadWithError
	case interaction.CodeReload:
		return ActionReload
	default:
		return ActionDismiss
	}
}

func deleteAction(i interaction.Interaction) ListAction {
	switch i.Code {
	case interaction.CodeTryOtherAccount, interaction.CodeTryOtherNetwork:
		return ActionReloadWithError
	case interaction.CodeReload, interaction.CodeProceed:
		return ActionReload
	default:
		return ActionDismiss
	}
}
