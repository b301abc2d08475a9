package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fingenie/internal/domain"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Input
		want domain.PolicyDecision
	}{
		{"empty recommendation", Input{Recommendation: "  ", AutoApprove: true}, domain.PolicyDecisionBlock},
		{"auto approve", Input{Recommendation: "Fixed Rate ISA", AutoApprove: true}, domain.PolicyDecisionAllow},
		{"default", Input{Recommendation: "Fixed Rate ISA"}, domain.PolicyDecisionRequireApproval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Evaluate(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Decision)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestStringDecisionAndErrors(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(ctx, "package approval_policy\n\ndecision = \"allow\"\n")
	require.NoError(t, err)
	res, err := e.Evaluate(ctx, Input{})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyDecisionAllow, res.Decision)

	e, err = NewEngine(ctx, "package approval_policy\n\ndecision = \"maybe\"\n")
	require.NoError(t, err)
	_, err = e.Evaluate(ctx, Input{})
	assert.Error(t, err)

	e, err = NewEngine(ctx, "package approval_policy\n\nother = 1\n")
	require.NoError(t, err)
	res, err = e.Evaluate(ctx, Input{})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyDecisionRequireApproval, res.Decision)

	_, err = NewEngine(ctx, "package approval_policy\n\ndecision = {")
	assert.Error(t, err)
}

func TestClassifyReply(t *testing.T) {
	tests := []struct {
		reply    string
		status   domain.ApprovalStatus
		comments string
	}{
		{"Approve", domain.ApprovalStatusApproved, ""},
		{" yes! ", domain.ApprovalStatusApproved, ""},
		{"ok", domain.ApprovalStatusApproved, ""},
		{"Rejected.", domain.ApprovalStatusRejected, ""},
		{"no", domain.ApprovalStatusRejected, ""},
		{"Looks fine, but add the ISA allowance", domain.ApprovalStatusApproved, "Looks fine, but add the ISA allowance"},
	}
	for _, tt := range tests {
		status, comments := ClassifyReply(tt.reply)
		assert.Equal(t, tt.status, status, tt.reply)
		assert.Equal(t, tt.comments, comments, tt.reply)
	}
}
