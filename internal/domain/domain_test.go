package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidGoalTitle(t *testing.T) {
	require.False(t, ValidGoalTitle(""))
	require.True(t, ValidGoalTitle("Buy milk"))
	require.True(t, ValidGoalTitle(strings.Repeat("я", MaxGoalTitleLength)))
	require.False(t, ValidGoalTitle(strings.Repeat("a", MaxGoalTitleLength+1)))
}

func TestChatIdentityLinked(t *testing.T) {
	var id int64 = 3
	require.False(t, ChatIdentity{ChatID: 1}.Linked())
	require.True(t, ChatIdentity{ChatID: 1, AccountID: &id}.Linked())
}
