package pfcaptchas

import (
	"testing"

	"portfolio/internal/models/pferrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	c := New(nil)

	ch, err := c.Generate(false)
	require.NoError(t, err)
	assert.NotEmpty(t, ch.ID)
	assert.Contains(t, ch.Image, "data:image/png;base64,")
	require.NotEmpty(t, ch.Answer)

	assert.NoError(t, c.Verify(ch.ID, " "+ch.Answer+" "))
	// déjà consommé
	assert.True(t, pferrors.IsValidation(c.Verify(ch.ID, ch.Answer)))
}

func TestGenerateProductionHidesAnswer(t *testing.T) {
	ch, err := New(nil).Generate(true)
	require.NoError(t, err)
	assert.Empty(t, ch.Answer)
}

func TestVerifyErrors(t *testing.T) {
	c := New(nil)

	err := c.Verify("", "")
	assert.True(t, pferrors.IsValidation(err))
	assert.EqualError(t, err, "Captcha is required")

	ch, err := c.Generate(false)
	require.NoError(t, err)
	assert.EqualError(t, c.Verify(ch.ID, "faux"), "Invalid captcha")
}
