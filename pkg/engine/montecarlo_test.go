package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/audit"
)

// seededBuilder собирает движок, приток которого зависит от зерна реплики
func seededBuilder(t *testing.T) Builder {
	t.Helper()
	return func(seed int64) (*Engine, error) {
		return New(steadyConfig(t, float64(60+seed), 100, 2, 2))
	}
}

func TestMonteCarlo_Ensemble(t *testing.T) {
	// Четыре реплики с притоком 70..73 против запроса 100 на двое суток
	mc := &MonteCarlo{
		Replicates: 4,
		BaseSeed:   10,
		Build:      seededBuilder(t),
	}

	ens, err := mc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, ens.Completed)
	assert.Zero(t, ens.Truncated)
	assert.Zero(t, ens.Failed)
	require.Len(t, ens.Replicates, 4)

	seen := make(map[string]bool)
	for i, rr := range ens.Replicates {
		assert.Equal(t, i, rr.Index)
		assert.Equal(t, int64(10+i), rr.Seed)
		assert.Equal(t, StatusCompleted, rr.Status)
		assert.Equal(t, 2, rr.Timesteps)
		require.NotNil(t, rr.Summary)
		assert.NotEmpty(t, rr.RunID)
		assert.False(t, seen[rr.RunID], "run ids must be unique per replicate")
		seen[rr.RunID] = true
	}

	// Поставки по репликам: 140, 142, 144, 146
	delivered := ens.TotalDelivered["city"]
	assert.Equal(t, 4, delivered.Count)
	assert.InDelta(t, 143, delivered.Mean, 1e-6)
	assert.InDelta(t, 140, delivered.Min, 1e-6)
	assert.InDelta(t, 146, delivered.Max, 1e-6)
	assert.InDelta(t, 140, delivered.P10, 1e-6)
	assert.InDelta(t, 142, delivered.P50, 1e-6)
	assert.InDelta(t, 146, delivered.P90, 1e-6)

	deficit := ens.TotalDeficit["city"]
	assert.InDelta(t, 57, deficit.Mean, 1e-6)
	assert.InDelta(t, 54, deficit.Min, 1e-6)
	assert.InDelta(t, 60, deficit.Max, 1e-6)

	// Дефицит в каждые сутки каждой реплики: надёжность нулевая
	assert.InDelta(t, 0, ens.Reliability["city"].Mean, 1e-9)
}

func TestMonteCarlo_ToleratesReplicateFailure(t *testing.T) {
	// Вторая реплика неразрешима, ансамбль продолжает работу
	mc := &MonteCarlo{
		Replicates: 3,
		BaseSeed:   10,
		Build: func(seed int64) (*Engine, error) {
			if seed == 11 {
				return New(infeasibleConfig(t))
			}
			return New(steadyConfig(t, float64(60+seed), 100, 2, 2))
		},
	}

	ens, err := mc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, ens.Completed)
	assert.Equal(t, 1, ens.Failed)

	failed := ens.Replicates[1]
	assert.Equal(t, StatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)
	assert.Nil(t, failed.Summary)

	// Статистика собирается только по выжившим репликам: 140 и 144
	delivered := ens.TotalDelivered["city"]
	assert.Equal(t, 2, delivered.Count)
	assert.InDelta(t, 142, delivered.Mean, 1e-6)
}

func TestMonteCarlo_AllReplicatesFailed(t *testing.T) {
	mc := &MonteCarlo{
		Replicates: 2,
		Build: func(int64) (*Engine, error) {
			return New(infeasibleConfig(t))
		},
	}

	ens, err := mc.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, ens)
	assert.True(t, apperror.Is(err, apperror.CodeInfeasible), "code = %v", apperror.Code(err))
}

func TestMonteCarlo_BuilderErrorIsFatal(t *testing.T) {
	// Несобираемый движок — ошибка конфигурации, а не стохастика
	mc := &MonteCarlo{
		Replicates: 3,
		Build: func(int64) (*Engine, error) {
			return nil, apperror.New(apperror.CodeNilInput, "network is required")
		},
	}

	ens, err := mc.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, ens)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestMonteCarlo_Validation(t *testing.T) {
	_, err := (&MonteCarlo{Replicates: 2}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))

	_, err = (&MonteCarlo{Build: seededBuilder(t)}).Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestMonteCarlo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&MonteCarlo{Replicates: 2, Build: seededBuilder(t)}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMonteCarlo_JournalRecordsReplicates(t *testing.T) {
	sink := &captureAudit{}
	mc := &MonteCarlo{
		Replicates: 2,
		BaseSeed:   20,
		Build:      seededBuilder(t),
		Journal:    audit.NewJournal(sink),
	}

	ens, err := mc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.entries, 2)

	for i, e := range sink.entries {
		assert.Equal(t, audit.ActionReplicate, e.Action)
		assert.Equal(t, audit.OutcomeSuccess, e.Outcome)
		assert.Equal(t, ens.Replicates[i].RunID, e.RunID)
		assert.EqualValues(t, i, e.Metadata["replicate"])
		assert.EqualValues(t, 20+i, e.Metadata["seed"])
		assert.EqualValues(t, 2, e.Metadata["timesteps"])
	}
}

func TestComputeStats_NearestRank(t *testing.T) {
	// Несортированный ввод: 10..100 с шагом 10
	values := []float64{50, 10, 90, 30, 70, 20, 100, 40, 80, 60}

	s := ComputeStats(values)

	assert.Equal(t, 10, s.Count)
	assert.InDelta(t, 55, s.Mean, 1e-9)
	assert.InDelta(t, 10, s.Min, 1e-9)
	assert.InDelta(t, 100, s.Max, 1e-9)
	assert.InDelta(t, 10, s.P10, 1e-9)
	assert.InDelta(t, 50, s.P50, 1e-9)
	assert.InDelta(t, 90, s.P90, 1e-9)

	// Исходный срез не переупорядочивается
	assert.Equal(t, []float64{50, 10, 90, 30, 70, 20, 100, 40, 80, 60}, values)
}

func TestComputeStats_SingleValue(t *testing.T) {
	s := ComputeStats([]float64{42})

	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 42, s.Mean, 1e-9)
	assert.InDelta(t, 42, s.Min, 1e-9)
	assert.InDelta(t, 42, s.Max, 1e-9)
	assert.InDelta(t, 42, s.P10, 1e-9)
	assert.InDelta(t, 42, s.P50, 1e-9)
	assert.InDelta(t, 42, s.P90, 1e-9)
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))
}
