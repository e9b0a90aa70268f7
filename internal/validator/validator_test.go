package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/pkg/dsl"
)

func TestValidateStoryClean(t *testing.T) {
	b := dsl.New()
	b.Node(0).Text("anna", "hi").Answer("go", 1)
	b.Node(1)
	assert.Empty(t, ValidateStory(b.Build()))
}

func TestValidateStoryFindsUnreachable(t *testing.T) {
	b := dsl.New()
	b.Node(0).Answer("go", 1)
	b.Node(1)
	b.Node(9)
	problems := ValidateStory(b.Build())
	require.Len(t, problems, 1)
	assert.Equal(t, 9, problems[0].NodeID)
	assert.Contains(t, problems[0].Message, "unreachable")
}

func TestValidateStoryFindsDanglingTargets(t *testing.T) {
	b := dsl.New()
	b.Node(0).Answer("into the void", 42)
	problems := ValidateStory(b.Build())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "missing node 42")
	// An unwired answer is not a problem.
	b2 := dsl.New()
	b2.Node(0).OpenAnswer("later")
	assert.Empty(t, ValidateStory(b2.Build()))
}

func TestValidateStoryFindsPendingPhotos(t *testing.T) {
	b := dsl.New()
	b.Node(0).Photo("anna", "a red bike")
	problems := ValidateStory(b.Build())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "no photo")
}

func TestValidateStoryFindsBlankDescriptions(t *testing.T) {
	b := dsl.New()
	b.Node(0).Photo("anna", "  ")
	problems := ValidateStory(b.Build())
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "no description")
}

func TestValidateStoryEmpty(t *testing.T) {
	problems := ValidateStory(nil)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Message, "no nodes")
}

func TestValidateStoryCycleTerminates(t *testing.T) {
	b := dsl.New()
	b.Node(0).Answer("a", 1)
	b.Node(1).Answer("back", 0)
	assert.Empty(t, ValidateStory(b.Build()), "cycles are legal and reachable")
}

func TestProblemString(t *testing.T) {
	p := Problem{NodeID: 3, Message: "boom"}
	assert.Equal(t, "node 3: boom", p.String())
}
