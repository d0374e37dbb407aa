package llmservice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/internal/errs"
)

func TestClassify_AuthFailures(t *testing.T) {
	for _, msg := range []string{
		"Incorrect API key: invalid api key provided",
		"401 Unauthorized",
		"no auth credentials found",
	} {
		err := Classify(errors.New(msg))
		require.ErrorIs(t, err, errs.ErrGenerationFailed, msg)
		require.True(t, errs.IsAuthFailed(err), msg)
		require.False(t, errs.IsQuotaExceeded(err), msg)
	}
}

func TestClassify_QuotaFailures(t *testing.T) {
	for _, msg := range []string{
		"quota exceeded for this billing period",
		"402: insufficient credits",
	} {
		err := Classify(errors.New(msg))
		require.ErrorIs(t, err, errs.ErrGenerationFailed, msg)
		require.True(t, errs.IsQuotaExceeded(err), msg)
		require.False(t, errs.IsAuthFailed(err), msg)
	}
}

func TestClassify_GenericFailure(t *testing.T) {
	err := Classify(errors.New("connection reset by peer"))
	require.ErrorIs(t, err, errs.ErrGenerationFailed)
	require.False(t, errs.IsAuthFailed(err))
	require.False(t, errs.IsQuotaExceeded(err))
}

func TestUserMessage_ActionableGuidance(t *testing.T) {
	auth := Classify(errors.New("invalid api key"))
	require.Contains(t, UserMessage(auth), "API key")

	quota := Classify(errors.New("insufficient credits"))
	require.Contains(t, UserMessage(quota), "credits")

	generic := Classify(errors.New("boom"))
	require.Contains(t, UserMessage(generic), "Error processing question")
}
