// AngelaMos | 2026
// template_test.go

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSelection(t *testing.T) {
	tpl, err := LoadTemplates()
	require.NoError(t, err)

	tests := []struct {
		name    string
		ev      Event
		wantKey string
	}{
		{
			name:    "kind specific",
			ev:      Event{Topic: TopicEntryReviewed, Kind: "share_purchase", Decision: "approve"},
			wantKey: "entry_reviewed.share_purchase.approve",
		},
		{
			name:    "decision fallback",
			ev:      Event{Topic: TopicEntryReviewed, Kind: "refund", Decision: "approve"},
			wantKey: "entry_reviewed.approve",
		},
		{
			name:    "reject shares one template",
			ev:      Event{Topic: TopicEntryReviewed, Kind: "share_purchase", Decision: "reject"},
			wantKey: "entry_reviewed.reject",
		},
		{
			name:    "topic only",
			ev:      Event{Topic: TopicShareDeduction, Kind: "share_deduction"},
			wantKey: "share_deduction",
		},
		{
			name:    "unknown topic",
			ev:      Event{Topic: Topic("password_reset")},
			wantKey: fallbackKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, _ := tpl.lookup(tt.ev)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestRenderSharePurchase(t *testing.T) {
	tpl, err := LoadTemplates()
	require.NoError(t, err)

	msg, err := tpl.Render("Pamoja Kenya MN", Event{
		Topic:    TopicEntryReviewed,
		Kind:     "share_purchase",
		Decision: "approve",
		To:       Recipient{Name: "Wanjiru", Email: "wanjiru@example.com"},
		Data: map[string]any{
			"amount":          "100.00",
			"reference_id":    "PAY-20260314-AB12CD34",
			"shares_assigned": 4,
			"shares_owned":    24,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Share purchase approved: 4 shares", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Wanjiru")
	assert.Contains(t, msg.Body, "Total shares owned: 24")
	assert.Equal(t, "wanjiru@example.com", msg.To.Email)
}

func TestRenderDefaultWithoutData(t *testing.T) {
	tpl, err := LoadTemplates()
	require.NoError(t, err)

	msg, err := tpl.Render("Pamoja", Event{Topic: Topic("something_new"), To: Recipient{Name: "Otieno"}})
	require.NoError(t, err)
	assert.Equal(t, "Pamoja: update on your account", msg.Subject)
	assert.Contains(t, msg.Body, "Dear Otieno")
}
