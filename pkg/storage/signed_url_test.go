package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("report-1", "reports/clubs.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "report-1", claims.ReportID)
	require.Equal(t, "reports/clubs.pdf", claims.Path)
	require.WithinDuration(t, expiresAt, claims.ExpiresAt, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("report-1", "reports/clubs.pdf")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	claims, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "reports/clubs.pdf", claims.Path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("report-1", "reports/clubs.pdf")
	require.NoError(t, err)

	other := NewSignedURLSigner("other", time.Hour)
	_, err = other.Parse(token, false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Parse("report-1.123", false)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = signer.Generate("", "x")
	require.Error(t, err)
}
