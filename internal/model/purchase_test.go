package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepOrdinalPipelineOrder(t *testing.T) {
	steps := []string{
		StepReservation, StepValidation, StepPayment,
		StepBurn, StepMetadata, StepRecording, StepCompleted,
	}
	for i := 1; i < len(steps); i++ {
		assert.Less(t, StepOrdinal(steps[i-1]), StepOrdinal(steps[i]),
			"%s must precede %s", steps[i-1], steps[i])
	}
}

func TestStepOrdinalUnknown(t *testing.T) {
	assert.Equal(t, StepOrdinal(StepUnknown), StepOrdinal("garbage"))
	// Unknown sorts before every real step so a corrective write can
	// always move the record forward.
	assert.Less(t, StepOrdinal(StepUnknown), StepOrdinal(StepReservation))
}

func TestIsFree(t *testing.T) {
	free := TraitOffer{}
	assert.True(t, free.IsFree())
	assert.False(t, (&TraitOffer{BurnCost: 1}).IsFree())
	assert.False(t, (&TraitOffer{SolPriceLamports: 1}).IsFree())
}
