package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hajime-dev/devicekb/internal/model"
)

func TestPriorUserTurnsKeepsRecentQuestions(t *testing.T) {
	history := []model.ChatMessage{
		{Role: chatRoleUser, Content: "how do I reset the controller?"},
		{Role: chatRoleAssistant, Content: "hold the button for ten seconds"},
		{Role: chatRoleUser, Content: "  "},
		{Role: chatRoleUser, Content: "what firmware is required?"},
		{Role: chatRoleAssistant, Content: "version 2.4 or later"},
		{Role: chatRoleUser, Content: "where do I download it?"},
	}

	turns := priorUserTurns(history, 2)
	require.Equal(t, []string{"what firmware is required?", "where do I download it?"}, turns)

	all := priorUserTurns(history, 10)
	require.Equal(t, []string{
		"how do I reset the controller?",
		"what firmware is required?",
		"where do I download it?",
	}, all)

	require.Empty(t, priorUserTurns(nil, 3))
}
