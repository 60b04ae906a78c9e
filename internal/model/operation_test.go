package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/interaction"
)

func TestPaymentResult_ExactlyOneBranch(t *testing.T) {
	ok := Success(OperationResult{
		ResultInfo:  "Approved",
		Interaction: interaction.New(interaction.CodeProceed, interaction.ReasonOK),
	})
	_, hasErr := ok.ErrorInfo()
	opRes, hasOp := ok.OperationResult()
	assert.True(t, hasOp)
	assert.False(t, hasErr)
	assert.Equal(t, "Approved", opRes.ResultInfo)
	assert.Equal(t, "Approved", ok.ResultInfo())
	assert.Equal(t, interaction.CodeProceed, ok.Interaction().Code)
	assert.Nil(t, ok.Cause())

	cause := errors.New("socket closed")
	failed := Failure(NewErrorInfo("socket closed", interaction.New(interaction.CodeVerify, interaction.ReasonCommunicationFailure), cause))
	_, hasOp = failed.OperationResult()
	_, hasErr = failed.ErrorInfo()
	assert.False(t, hasOp)
	assert.True(t, hasErr)
	assert.Equal(t, interaction.ReasonCommunicationFailure, failed.Interaction().Reason)
	assert.Equal(t, "socket closed", failed.ResultInfo())
	assert.ErrorIs(t, failed.Cause(), cause)
}

func TestFailure_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { Failure(nil) })
}

func TestErrorInfo_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := NewClientSideError(cause)

	assert.Equal(t, "gateway interaction ABORT/CLIENTSIDE_ERROR: boom", e.Error())
	assert.ErrorIs(t, e, cause)

	var target *ErrorInfo
	wrapped := errors.Join(errors.New("outer"), e)
	require.ErrorAs(t, wrapped, &target)
	assert.Equal(t, interaction.ReasonClientsideError, target.Interaction.Reason)
}

func TestOperationResult_DecodesGatewayPayload(t *testing.T) {
	body := `{
		"resultInfo": "Redirect required",
		"interaction": {"code": "PROCEED", "reason": "OK"},
		"redirect": {"url": "https://acs.example/3ds", "method": "GET", "type": "3DS2-HANDLER",
			"parameters": [{"name": "token", "value": "abc"}]},
		"providerResponse": {"providerCode": "BRAINTREE", "parameters": [{"name": "currencyCode", "value": "EUR"}]},
		"links": {"redirect": "https://acs.example/post"}
	}`
	var res OperationResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))

	require.NotNil(t, res.Redirect)
	assert.Equal(t, "3DS2-HANDLER", res.Redirect.Type)
	require.Len(t, res.Redirect.Parameters, 1)
	assert.Equal(t, "abc", *res.Redirect.Parameters[0].Value)

	require.NotNil(t, res.ProviderResponse)
	v, ok := res.ProviderResponse.Lookup("currencyCode")
	assert.True(t, ok)
	assert.Equal(t, "EUR", v)
	_, ok = res.ProviderResponse.Lookup("missing")
	assert.False(t, ok)

	link, ok := res.Links.Get(LinkRedirect)
	assert.True(t, ok)
	assert.Equal(t, "https://acs.example/post", link)
}

func TestLinks_GetTreatsEmptyAsMissing(t *testing.T) {
	l := Links{LinkSelf: ""}
	_, ok := l.Get(LinkSelf)
	assert.False(t, ok)

	var nilLinks Links
	_, ok = nilLinks.Get(LinkOperation)
	assert.False(t, ok)
}
