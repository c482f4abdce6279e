package strategy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/evharness/internal/governance"
	"github.com/ternarybob/evharness/internal/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, 11, r.Len())
	assert.Equal(t, "STRAT_MOM_TREND_V1", r.IDs()[0])
	assert.Equal(t, []string{"momentum", "volatility", "mean_reversion", "value", "defensive", "macro"}, r.Families())

	for _, def := range r.All() {
		assert.NotEmpty(t, def.Name, def.StrategyID)
		assert.Contains(t, []models.SafetyBehavior{models.SafetyBlock, models.SafetyDegrade}, def.SafetyBehavior)
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	r := DefaultRegistry()

	def, ok := r.Get("STRAT_MOM_TREND_V1")
	require.True(t, ok)
	def.RegimeContract.Allow[0] = "BEARISH"
	def.FactorContract["momentum"] = models.FactorRequirement{MinState: "NONE"}

	all := r.All()
	all[0].Name = "mutated"

	again, _ := r.Get("STRAT_MOM_TREND_V1")
	assert.Equal(t, []string{"BULLISH"}, again.RegimeContract.Allow)
	assert.Equal(t, "CONFIRMED", again.FactorContract["momentum"].MinState)
	assert.Equal(t, "Trend-Following Momentum", again.Name)

	vol, _ := r.Get("STRAT_VOL_EXPANSION_V1")
	*vol.FactorContract["volatility_factor"].MinVariance = 99
	vol, _ = r.Get("STRAT_VOL_EXPANSION_V1")
	assert.Equal(t, 1.2, *vol.FactorContract["volatility_factor"].MinVariance)
}

func TestRegistry_CopiesOnConstruct(t *testing.T) {
	def := models.StrategyDefinition{
		StrategyID:     "S1",
		RegimeContract: &models.RegimeContract{Allow: []string{"BULLISH"}},
		SafetyBehavior: models.SafetyBlock,
	}
	r, err := NewRegistry(def)
	require.NoError(t, err)

	def.RegimeContract.Allow[0] = "BEARISH"
	got, _ := r.Get("S1")
	assert.Equal(t, []string{"BULLISH"}, got.RegimeContract.Allow)
}

func TestNewRegistry_Rejects(t *testing.T) {
	_, err := NewRegistry(
		models.StrategyDefinition{StrategyID: "S1", SafetyBehavior: models.SafetyBlock},
		models.StrategyDefinition{StrategyID: "S1", SafetyBehavior: models.SafetyBlock},
	)
	assert.EqualError(t, err, "strategy already exists: S1")

	_, err = NewRegistry(models.StrategyDefinition{SafetyBehavior: models.SafetyBlock})
	assert.Error(t, err)

	_, err = NewRegistry(models.StrategyDefinition{StrategyID: "S2", SafetyBehavior: "execute"})
	var ie *governance.InvariantError
	assert.True(t, errors.As(err, &ie))
}

func TestGet_Missing(t *testing.T) {
	_, ok := DefaultRegistry().Get("NOPE")
	assert.False(t, ok)
}
