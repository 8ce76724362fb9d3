package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyflow/outreach-backend/internal/model"
)

func msg(id, step int) *model.OutboundMessage {
	return &model.OutboundMessage{ID: id, SequenceStep: step, Status: model.MessageStatusPending}
}

func TestSelectEligibleTruncatesToAllowance(t *testing.T) {
	sel := &EligibilitySelector{Messages: &fakeMessages{
		pendingInitial: func(campaignID, limit int) ([]*model.OutboundMessage, error) {
			return []*model.OutboundMessage{msg(1, 1), msg(2, 1)}, nil
		},
		readyFollowUps: func(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error) {
			return []*model.OutboundMessage{msg(3, step), msg(4, step)}, nil
		},
	}}
	campaign := &model.Campaign{
		ID:       10,
		Sequence: []model.SequenceStep{{Step: 1}, {Step: 2, DelayDays: 3}},
	}

	batch, err := sel.SelectEligible(campaign, time.Now(), 3)
	require.NoError(t, err)
	require.Len(t, batch, 3, "combined batch truncated to the allowance")
	assert.Equal(t, []int{1, 2, 3}, []int{batch[0].ID, batch[1].ID, batch[2].ID},
		"initial messages come before follow-ups")
}

func TestSelectEligibleFollowUpCutoff(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	var gotStep, gotLimit int
	var gotCutoff time.Time
	sel := &EligibilitySelector{Messages: &fakeMessages{
		readyFollowUps: func(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error) {
			gotStep, gotCutoff, gotLimit = step, sentBefore, limit
			return nil, nil
		},
	}}
	campaign := &model.Campaign{
		ID:       10,
		Sequence: []model.SequenceStep{{Step: 1}, {Step: 2, DelayDays: 3}},
	}

	_, err := sel.SelectEligible(campaign, now, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, gotStep)
	assert.Equal(t, now.Add(-72*time.Hour), gotCutoff, "cutoff is now minus delayDays")
	assert.Equal(t, followUpStepLimit, gotLimit, "per-step query is bounded")
}

func TestSelectEligibleZeroAllowance(t *testing.T) {
	queried := false
	sel := &EligibilitySelector{Messages: &fakeMessages{
		pendingInitial: func(campaignID, limit int) ([]*model.OutboundMessage, error) {
			queried = true
			return nil, nil
		},
	}}

	batch, err := sel.SelectEligible(&model.Campaign{ID: 10}, time.Now(), 0)
	require.NoError(t, err)
	assert.Empty(t, batch)
	assert.False(t, queried, "no allowance means no queries")
}

func TestSelectEligibleSkipsStepOneInSequence(t *testing.T) {
	// Step 1 entries in the sequence config describe the initial touch and
	// must not produce a follow-up query.
	var followUpSteps []int
	sel := &EligibilitySelector{Messages: &fakeMessages{
		readyFollowUps: func(campaignID, step int, sentBefore time.Time, limit int) ([]*model.OutboundMessage, error) {
			followUpSteps = append(followUpSteps, step)
			return nil, nil
		},
	}}
	campaign := &model.Campaign{
		ID:       10,
		Sequence: []model.SequenceStep{{Step: 1}, {Step: 2, DelayDays: 1}, {Step: 3, DelayDays: 2}},
	}

	_, err := sel.SelectEligible(campaign, time.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, followUpSteps)
}
