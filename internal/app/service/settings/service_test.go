package settings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/nebulahq/nebula/internal/models"
)

func TestLocation(t *testing.T) {
	s := &Service{log: zap.NewNop().Sugar()}

	loc := s.Location(&models.Settings{Timezone: "Asia/Shanghai"})
	assert.Equal(t, "Asia/Shanghai", loc.String())

	// Unknown zones fall back to UTC instead of erroring.
	loc = s.Location(&models.Settings{Timezone: "Mars/Olympus_Mons"})
	assert.Equal(t, time.UTC, loc)

	loc = s.Location(&models.Settings{Timezone: ""})
	assert.Equal(t, time.UTC, loc)
}

func TestUpdate_RejectsBeforePersisting(t *testing.T) {
	// db is nil; every case below must fail validation before any query.
	s := &Service{log: zap.NewNop().Sugar()}

	tests := []struct {
		name string
		in   UpdateInput
	}{
		{name: "bad timezone", in: UpdateInput{Timezone: "Nowhere/Null", Language: "en", BaseCurrency: "USD"}},
		{name: "bad currency", in: UpdateInput{Timezone: "UTC", Language: "en", BaseCurrency: "DOGE"}},
		{name: "bad language", in: UpdateInput{Timezone: "UTC", Language: "fr", BaseCurrency: "USD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Update(context.Background(), tt.in)
			assert.Error(t, err)
		})
	}
}
