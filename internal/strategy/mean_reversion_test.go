package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clobster/clobcore/internal/domain"
)

func meanRevConfig() Config {
	return Config{Enabled: true, Params: Params{
		"window_size":   4,
		"min_samples":   4,
		"entry_z_score": 1.2,
		"exit_z_score":  0.6,
		"order_size":    5,
	}}
}

func TestMeanReversion_EntersBelowMean(t *testing.T) {
	s := NewMeanReversion(nil)
	require.NoError(t, s.Initialize(context.Background(), meanRevConfig()))

	for _, p := range []string{"0.50", "0.50", "0.50"} {
		sigs, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", p))
		require.NoError(t, err)
		assert.Empty(t, sigs, "needs min_samples and deviation")
	}

	// Window [0.50 0.50 0.50 0.38]: z is about -1.5.
	sigs, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", "0.38"))
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	sig := sigs[0]
	assert.Equal(t, domain.SignalTypeBuy, sig.Type)
	assert.True(t, sig.Size.Equal(dec("5")))
	assert.NotEmpty(t, sig.Reason)
}

func TestMeanReversion_ExitsOnReversion(t *testing.T) {
	s := NewMeanReversion(nil)
	require.NoError(t, s.Initialize(context.Background(), meanRevConfig()))

	for _, p := range []string{"0.50", "0.50", "0.50", "0.38"} {
		_, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", p))
		require.NoError(t, err)
	}

	// Window [0.50 0.50 0.38 0.50]: z is about +0.5, inside the exit band.
	sigs, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", "0.50"))
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, domain.SignalTypeSell, sigs[0].Type)
}

func TestMeanReversion_FlatWindowEmitsNothing(t *testing.T) {
	s := NewMeanReversion(nil)
	require.NoError(t, s.Initialize(context.Background(), meanRevConfig()))

	for i := 0; i < 6; i++ {
		sigs, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", "0.50"))
		require.NoError(t, err)
		assert.Empty(t, sigs)
	}
}

func TestMeanReversion_NoEntryAboveMean(t *testing.T) {
	s := NewMeanReversion(nil)
	require.NoError(t, s.Initialize(context.Background(), meanRevConfig()))

	// Price spikes up: z is positive, which is never an entry.
	for _, p := range []string{"0.50", "0.50", "0.50", "0.62"} {
		sigs, err := s.Evaluate(context.Background(), priceCtx("mkt-1", "tok-a", p))
		require.NoError(t, err)
		assert.Empty(t, sigs)
	}
}

func TestMeanReversion_ConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"window too small", Params{"window_size": 1}},
		{"min_samples above window", Params{"window_size": 4, "min_samples": 9}},
		{"negative exit", Params{"exit_z_score": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMeanReversion(nil)
			err := s.Initialize(context.Background(), Config{Enabled: true, Params: tt.params})
			require.Error(t, err)
			var cfgErr ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
