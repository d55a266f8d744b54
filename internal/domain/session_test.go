package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testProfile() *Profile {
	return &Profile{
		UserID:   primitive.NewObjectID(),
		FullName: "Al",
		Goal:     GoalBuildMuscle,
	}
}

func TestStartSession(t *testing.T) {
	t.Run("nil profile", func(t *testing.T) {
		s, err := StartSession(nil)
		assert.Nil(t, s)
		assert.ErrorIs(t, err, ErrProfileMissing)
	})

	t.Run("preamble embeds name and goal", func(t *testing.T) {
		p := testProfile()
		s, err := StartSession(p)
		require.NoError(t, err)
		assert.Equal(t, StateConsulting, s.State)
		assert.Equal(t, p.UserID, s.UserID)
		assert.Empty(t, s.Messages)
		assert.Equal(t, "Hi Al, I see your goal is to Build Muscle. Let's quickly go over your preferences to create your workout plan.", s.Preamble)
		assert.Equal(t, s.Preamble, s.Context())
	})
}

func TestAppendUserIgnoresBlankInput(t *testing.T) {
	s, err := StartSession(testProfile())
	require.NoError(t, err)
	s.AppendAssistant("hello")

	for _, in := range []string{"", "   ", "\t\n"} {
		assert.False(t, s.AppendUser(in))
		assert.Len(t, s.Messages, 1)
	}
	assert.True(t, s.AppendUser("  padded  "))
	assert.Equal(t, UserMessage("  padded  "), s.Messages[1])
}

func TestContextIsProjectionOfTranscript(t *testing.T) {
	s, err := StartSession(testProfile())
	require.NoError(t, err)
	s.AppendAssistant("What days suit you?")
	prior := s.Context()

	s.AppendUser("I can do 4 days")
	s.AppendAssistant("Great, mornings or evenings?")

	assert.Equal(t, prior+"\nUser: I can do 4 days"+"\nAI: Great, mornings or evenings?", s.Context())
	assert.Equal(t, ProjectContext(s.Preamble, s.Snapshot()), s.Context())
}

func TestCanFinalize(t *testing.T) {
	s, err := StartSession(testProfile())
	require.NoError(t, err)
	for i := 0; i < FinalizeThreshold-1; i++ {
		s.AppendAssistant("x")
		assert.False(t, s.CanFinalize(), "len=%d", len(s.Messages))
	}
	s.AppendUser("y")
	assert.True(t, s.CanFinalize())
}

func TestSnapshotIsACopy(t *testing.T) {
	s, err := StartSession(testProfile())
	require.NoError(t, err)
	s.AppendAssistant("one")

	snap := s.Snapshot()
	snap[0].Content = "changed"
	assert.Equal(t, "one", s.Messages[0].Content)
}

func TestProjectContextSkipsSystemMessages(t *testing.T) {
	got := ProjectContext("", []Message{
		SystemMessage("ignored"),
		UserMessage("hi"),
		AssistantMessage("hello"),
	})
	assert.Equal(t, "User: hi\nAI: hello", got)
}
