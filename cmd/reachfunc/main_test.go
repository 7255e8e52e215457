package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// The exit status depends on the coded error surviving errors.As; a mismatch
// here would make the CLI exit 2 even when the analysis merely found
// unreachable functions.
func TestErrWithCode_MatchesThroughErrorsAs(t *testing.T) {
	err := errWithCode(nil, exitUnreachableFound)

	var cErr *codedError
	require.True(t, errors.As(err, &cErr), "coded error must be recoverable with errors.As")
	require.Equal(t, exitUnreachableFound, cErr.code)
	require.Empty(t, cErr.Error())
}

func TestErrWithCode_CarriesCause(t *testing.T) {
	err := errWithCode(errors.New("boom"), exitError)

	var cErr *codedError
	require.True(t, errors.As(err, &cErr))
	require.Equal(t, exitError, cErr.code)
	require.Equal(t, "boom", cErr.Error())
}
