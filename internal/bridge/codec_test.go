package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	beneficiary, err := ParseBeneficiary("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	require.NoError(t, err)

	msg := Message{
		Action:      ActionSupply,
		Beneficiary: beneficiary,
		Amount:      1_500_000,
		Timestamp:   time.Now().Unix(),
	}

	payload, err := EncodeMessage(msg)
	require.NoError(t, err)

	decoded, err := DecodeMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
	assert.Equal(t, "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd", decoded.BeneficiaryHex())
}

func TestDecodeRejectsUnknownAction(t *testing.T) {
	msg := Message{Action: NewAction("teleport"), Timestamp: time.Now().Unix()}
	payload, err := EncodeMessage(msg)
	require.NoError(t, err)

	_, err = DecodeMessage(payload)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestMessageAgeWindow(t *testing.T) {
	now := time.Now()

	fresh := Message{Timestamp: now.Unix()}
	assert.NoError(t, fresh.CheckAge(now, 10*time.Minute))

	stale := Message{Timestamp: now.Add(-time.Hour).Unix()}
	assert.ErrorIs(t, stale.CheckAge(now, 10*time.Minute), ErrMessageExpired)

	future := Message{Timestamp: now.Add(time.Hour).Unix()}
	assert.ErrorIs(t, future.CheckAge(now, 10*time.Minute), ErrMessageExpired)

	// Zero max age disables the check entirely.
	assert.NoError(t, stale.CheckAge(now, 0))
}

func TestParseBeneficiaryRejectsBadInput(t *testing.T) {
	_, err := ParseBeneficiary("0x1234")
	assert.Error(t, err)

	_, err = ParseBeneficiary("not-hex")
	assert.Error(t, err)
}
