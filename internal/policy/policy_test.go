package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anandtech09/reception-prime-queue/internal/model"
	"github.com/Anandtech09/reception-prime-queue/pkg/errors"
)

func waitingFor(doctorID string, n int) []model.Token {
	tokens := make([]model.Token, n)
	for i := range tokens {
		tokens[i] = model.Token{
			ID:               doctorID + "-" + string(rune('a'+i)),
			ServiceType:      model.ServiceTypeGP,
			Status:           model.TokenStatusWaiting,
			AssignedDoctorID: doctorID,
			IsSpecificDoctor: true,
		}
	}
	return tokens
}

func TestLeastBusy(t *testing.T) {
	gp1 := model.Doctor{ID: "gp1", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive}
	gp2 := model.Doctor{ID: "gp2", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive}

	tests := []struct {
		name       string
		candidates []model.Doctor
		tokens     []model.Token
		want       string
	}{
		{
			name:       "fewest waiting wins",
			candidates: []model.Doctor{gp1, gp2},
			tokens:     append(waitingFor("gp1", 3), waitingFor("gp2", 1)...),
			want:       "gp2",
		},
		{
			name:       "tie goes to roster order",
			candidates: []model.Doctor{gp1, gp2},
			tokens:     append(waitingFor("gp1", 2), waitingFor("gp2", 2)...),
			want:       "gp1",
		},
		{
			name:       "no tokens at all",
			candidates: []model.Doctor{gp2, gp1},
			tokens:     nil,
			want:       "gp2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LeastBusy(tt.candidates, tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeastBusyIgnoresNonWaitingTokens(t *testing.T) {
	gp1 := model.Doctor{ID: "gp1", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive}
	gp2 := model.Doctor{ID: "gp2", ServiceType: model.ServiceTypeGP, Status: model.DoctorStatusActive}

	// gp1 has a pile of visited history but an empty queue.
	tokens := waitingFor("gp1", 2)
	for i := range tokens {
		tokens[i].Status = model.TokenStatusVisited
	}
	tokens = append(tokens, waitingFor("gp2", 1)...)

	got, err := LeastBusy([]model.Doctor{gp1, gp2}, tokens)
	require.NoError(t, err)
	assert.Equal(t, "gp1", got)
}

func TestLeastBusyEmptyCandidates(t *testing.T) {
	_, err := LeastBusy(nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrEmptyCandidates, errors.CodeOf(err))
}

func TestQueuePosition(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	mk := func(id string, offset int, st model.ServiceType) model.Token {
		return model.Token{
			ID:          id,
			ServiceType: st,
			Status:      model.TokenStatusWaiting,
			CreatedAt:   base.Add(time.Duration(offset) * time.Minute),
		}
	}

	first := mk("t1", 0, model.ServiceTypeGP)
	second := mk("t2", 1, model.ServiceTypeGP)
	third := mk("t3", 2, model.ServiceTypeGP)
	dental := mk("d1", 0, model.ServiceTypeDental)
	tokens := []model.Token{first, second, third, dental}

	assert.Equal(t, 1, QueuePosition(first, tokens))
	assert.Equal(t, 2, QueuePosition(second, tokens))
	assert.Equal(t, 3, QueuePosition(third, tokens))

	// Positions are per service type.
	assert.Equal(t, 1, QueuePosition(dental, tokens))
}

func TestQueuePositionTieBreaksOnID(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	a := model.Token{ID: "a", ServiceType: model.ServiceTypeGP, Status: model.TokenStatusWaiting, CreatedAt: base}
	b := model.Token{ID: "b", ServiceType: model.ServiceTypeGP, Status: model.TokenStatusWaiting, CreatedAt: base}
	tokens := []model.Token{b, a}

	// Identical creation times still yield distinct positions.
	assert.Equal(t, 1, QueuePosition(a, tokens))
	assert.Equal(t, 2, QueuePosition(b, tokens))
}

func TestQueuePositionSkipsDedicatedAndCalled(t *testing.T) {
	base := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	dedicated := model.Token{
		ID: "d", ServiceType: model.ServiceTypeGP, Status: model.TokenStatusWaiting,
		AssignedDoctorID: "gp1", IsSpecificDoctor: true, CreatedAt: base,
	}
	calling := model.Token{
		ID: "c", ServiceType: model.ServiceTypeGP, Status: model.TokenStatusCalling,
		AssignedDoctorID: "gp2", CreatedAt: base.Add(time.Minute),
	}
	shared := model.Token{
		ID: "s", ServiceType: model.ServiceTypeGP, Status: model.TokenStatusWaiting,
		CreatedAt: base.Add(2 * time.Minute),
	}
	tokens := []model.Token{dedicated, calling, shared}

	// Neither the dedicated nor the in-progress token occupies a shared slot.
	assert.Equal(t, 1, QueuePosition(shared, tokens))

	// Dedicated tokens have no shared-queue position at all.
	assert.Equal(t, 0, QueuePosition(dedicated, tokens))
}
