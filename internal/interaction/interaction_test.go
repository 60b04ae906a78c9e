package interaction

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode_RecognizedAndFallback(t *testing.T) {
	for _, c := range Codes() {
		assert.Equal(t, c, ParseCode(c.String()), "code %s should round trip", c)
	}
	assert.Equal(t, CodeUnrecognized, ParseCode("SOMETHING_NEW"))
	assert.Equal(t, CodeUnrecognized, ParseCode(""))
}

func TestParseReason_GatewayUnknownIsNotFallback(t *testing.T) {
	assert.Equal(t, ReasonUnknown, ParseReason("UNKNOWN"))
	assert.Equal(t, ReasonUnrecognized, ParseReason("NOT_A_REASON"))
	assert.Equal(t, ReasonCommunicationFailure, ParseReason("COMMUNICATION_FAILURE"))
}

func TestInteraction_JSONPreservesUnrecognizedValues(t *testing.T) {
	var i Interaction
	require.NoError(t, json.Unmarshal([]byte(`{"code":"HOLD","reason":"MAINTENANCE"}`), &i))

	assert.Equal(t, CodeUnrecognized, i.Code)
	assert.Equal(t, ReasonUnrecognized, i.Reason)
	assert.Equal(t, "HOLD/MAINTENANCE", i.String())

	out, err := json.Marshal(i)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"HOLD","reason":"MAINTENANCE"}`, string(out))
}

func TestInteraction_DecodedEqualsConstructed(t *testing.T) {
	var i Interaction
	require.NoError(t, json.Unmarshal([]byte(`{"code":"RETRY","reason":"INVALID_ACCOUNT"}`), &i))
	assert.Equal(t, New(CodeRetry, ReasonInvalidAccount), i)
}

func TestFailureCodeFor(t *testing.T) {
	tests := map[string]Code{
		"PRESET":     CodeAbort,
		"UPDATE":     CodeAbort,
		"ACTIVATION": CodeAbort,
		"CHARGE":     CodeVerify,
		"PAYOUT":     CodeVerify,
		"":           CodeVerify,
	}
	for opType, want := range tests {
		assert.Equal(t, want, FailureCodeFor(opType), "operation type %q", opType)
	}
}
