package editor_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/internal/adapters/memory"
	"github.com/mooncrowned/storyed/internal/testutils"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/editor"
	"github.com/mooncrowned/storyed/pkg/session"
)

func openSession(t *testing.T, opts editor.Options) (*editor.Session, *memory.Store) {
	t.Helper()
	storage, _ := testutils.SetupStory(t)
	if opts.Debounce == 0 {
		opts.Debounce = 20 * time.Millisecond
	}
	sess, err := editor.Open(context.Background(), storage, opts)
	require.NoError(t, err)
	t.Cleanup(func() { sess.Close(context.Background()) })
	return sess, storage
}

func readNode(t *testing.T, storage *memory.Store, name string) *domain.Node {
	t.Helper()
	data, err := storage.ReadFile(context.Background(), "Nodes/"+name)
	require.NoError(t, err)
	var n domain.Node
	require.NoError(t, json.Unmarshal(data, &n))
	return &n
}

func TestOpenLoadsExistingStory(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})
	assert.Equal(t, 1, sess.Store().Len())
	assert.Equal(t, "Anna", sess.Meta().Characters[0].Name)
	assert.Equal(t, 0, sess.Layout().Root)
}

func TestOpenCreatesInitialNodeWhenMissing(t *testing.T) {
	// A story directory whose Nodes/ is empty: node 0 appears, durably.
	ctx := context.Background()
	storage, _ := testutils.SetupStory(t)
	// Simulate a hand-made story without node files.
	require.NoError(t, storage.EnsureDir(ctx, "Nodes"))
	fresh := memory.NewStore()
	meta, err := storage.ReadFile(ctx, "StoryMeta.json")
	require.NoError(t, err)
	require.NoError(t, fresh.EnsureDir(ctx, "Nodes"))
	require.NoError(t, fresh.WriteFile(ctx, "StoryMeta.json", meta))

	sess, err := editor.Open(ctx, fresh, editor.Options{})
	require.NoError(t, err)
	defer sess.Close(ctx)

	n := readNode(t, fresh, "000.json")
	assert.Equal(t, 0, n.ID)
}

func TestEditsArePersistedAfterDebounce(t *testing.T) {
	sess, storage := openSession(t, editor.Options{})

	require.NoError(t, sess.AddMessage(0, 0, domain.NewTextMessage("anna", "hello")))

	require.Eventually(t, func() bool {
		n := readNode(t, storage, "000.json")
		return len(n.Messages) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello", readNode(t, storage, "000.json").Messages[0].Text)
}

func TestCloseFlushesPendingEdits(t *testing.T) {
	ctx := context.Background()
	storage, _ := testutils.SetupStory(t)
	sess, err := editor.Open(ctx, storage, editor.Options{Debounce: time.Hour})
	require.NoError(t, err)

	require.NoError(t, sess.AddMessage(0, 0, domain.NewTextMessage("anna", "bye")))
	require.NoError(t, sess.Close(ctx))

	n := readNode(t, storage, "000.json")
	require.Len(t, n.Messages, 1)
}

func TestMessageOperations(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})

	require.NoError(t, sess.AddMessage(0, 0, domain.NewTextMessage("anna", "first")))
	require.NoError(t, sess.AddMessage(0, 99, domain.NewTextMessage("anna", "last"))) // out-of-range appends
	require.NoError(t, sess.AddMessage(0, 1, domain.NewTextMessage("anna", "middle")))

	n, _ := sess.Node(0)
	require.Len(t, n.Messages, 3)
	assert.Equal(t, []string{"first", "middle", "last"},
		[]string{n.Messages[0].Text, n.Messages[1].Text, n.Messages[2].Text})

	require.NoError(t, sess.UpdateMessage(0, 1, domain.NewTextMessage("anna", "updated")))
	require.NoError(t, sess.RemoveMessage(0, 0))
	n, _ = sess.Node(0)
	require.Len(t, n.Messages, 2)
	assert.Equal(t, "updated", n.Messages[0].Text)

	assert.ErrorIs(t, sess.UpdateMessage(0, 5, domain.Message{}), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, sess.RemoveMessage(0, -1), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, sess.AddMessage(42, 0, domain.Message{}), domain.ErrNodeNotFound)
}

func TestAnswerIDsMonotonic(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})

	a1, err := sess.AddAnswer(0)
	require.NoError(t, err)
	assert.Equal(t, "a_0_1", a1.ID)
	assert.Nil(t, a1.NextNode)
	assert.Zero(t, a1.Delay)

	require.NoError(t, sess.RemoveAnswer(0, 0))

	a2, err := sess.AddAnswer(0)
	require.NoError(t, err)
	assert.Equal(t, "a_0_2", a2.ID, "removed ids are never reused")
}

func TestUpdateAnswerClampsDelay(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})
	_, err := sess.AddAnswer(0)
	require.NoError(t, err)

	require.NoError(t, sess.UpdateAnswer(0, 0, "sure", -3))
	n, _ := sess.Node(0)
	assert.Equal(t, 0.0, n.Answers[0].Delay)
	assert.Equal(t, "sure", n.Answers[0].Message)
}

func TestSetAnswerTargetAllowsMissingNode(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})
	_, err := sess.AddAnswer(0)
	require.NoError(t, err)

	target := 42
	require.NoError(t, sess.SetAnswerTarget(0, 0, &target), "forward references are legal")
	n, _ := sess.Node(0)
	assert.Equal(t, 42, *n.Answers[0].NextNode)

	require.NoError(t, sess.SetAnswerTarget(0, 0, nil))
	n, _ = sess.Node(0)
	assert.Nil(t, n.Answers[0].NextNode)
}

func TestCreateLinkedNodeIsDurableBeforeWiring(t *testing.T) {
	ctx := context.Background()
	storage, _ := testutils.SetupStory(t)
	sess, err := editor.Open(ctx, storage, editor.Options{Debounce: time.Hour})
	require.NoError(t, err)
	defer sess.Close(ctx)

	_, err = sess.AddAnswer(0)
	require.NoError(t, err)

	id, err := sess.CreateLinkedNode(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	// The new node's file exists immediately, long before any debounce
	// window expires.
	created := readNode(t, storage, "001.json")
	assert.Equal(t, 1, created.ID)

	n, _ := sess.Node(0)
	require.NotNil(t, n.Answers[0].NextNode)
	assert.Equal(t, 1, *n.Answers[0].NextNode)
	assert.Equal(t, 1, sess.Layout().Positions[1].Column)
}

func TestCreateLinkedNodeStorageFailureLeavesGraphUntouched(t *testing.T) {
	ctx := context.Background()
	storage, _ := testutils.SetupStory(t)
	sess, err := editor.Open(ctx, storage, editor.Options{Debounce: time.Hour})
	require.NoError(t, err)
	defer sess.Close(ctx)

	_, err = sess.AddAnswer(0)
	require.NoError(t, err)

	storage.FailWrites(assert.AnError)
	_, err = sess.CreateLinkedNode(ctx, 0, 0)
	require.Error(t, err)
	storage.FailWrites(nil)

	n, _ := sess.Node(0)
	assert.Nil(t, n.Answers[0].NextNode, "the answer stays unwired after a failed save")
	assert.Equal(t, 1, sess.Store().Len())
}

func TestCreateLinkedNodeValidatesInput(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})
	_, err := sess.CreateLinkedNode(context.Background(), 0, 0)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfRange)
	_, err = sess.CreateLinkedNode(context.Background(), 42, 0)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestSelectHighlightAndRepeatedSelectionStable(t *testing.T) {
	sess, _ := openSession(t, editor.Options{})
	_, err := sess.AddAnswer(0)
	require.NoError(t, err)
	id, err := sess.CreateLinkedNode(context.Background(), 0, 0)
	require.NoError(t, err)

	h := sess.Select(&id)
	require.NotNil(t, h.Selected)
	assert.True(t, h.Ancestors[0])

	y := sess.Layout().Positions[0].Y
	// Selecting the same node again must not accumulate column shifts.
	sess.Select(&id)
	assert.Equal(t, y, sess.Layout().Positions[0].Y)

	h = sess.Select(nil)
	assert.True(t, h.Empty())
}

func TestLayoutSnapshotDetachedFromLaterEdits(t *testing.T) {
	sess, _ := openSession(t, editor.Options{Debounce: time.Hour})

	held := sess.Layout()
	before := held.Positions[0].Height

	for i := 0; i < 3; i++ {
		require.NoError(t, sess.AddMessage(0, 0, domain.NewTextMessage("anna", "hi")))
	}
	assert.Equal(t, before, held.Positions[0].Height, "edits reflow the live layout, not handed-out snapshots")
	assert.Greater(t, sess.Layout().Positions[0].Height, before)
}

func TestLayoutConcurrentReadersAndWriter(t *testing.T) {
	// Readers iterate a held layout while a writer keeps reflowing. Run
	// with -race: snapshots must not share position structs with the live
	// layout.
	sess, _ := openSession(t, editor.Options{Debounce: time.Hour})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = sess.AddMessage(0, 0, domain.NewTextMessage("anna", "hi"))
		}
	}()

	for i := 0; i < 100; i++ {
		res := sess.Layout()
		sum := 0.0
		for _, p := range res.Positions {
			sum += p.Y + p.Height
		}
		assert.Greater(t, sum, 0.0)
		_ = res.Edges()
	}
	<-done
}

func TestOpenRefusesSecondSession(t *testing.T) {
	ctx := context.Background()
	storage, _ := testutils.SetupStory(t)
	locks := session.NewManager()

	first, err := editor.Open(ctx, storage, editor.Options{Locks: locks, StoryKey: "story-a"})
	require.NoError(t, err)
	defer first.Close(ctx)

	_, err = editor.Open(ctx, storage, editor.Options{Locks: locks, StoryKey: "story-a"})
	assert.ErrorIs(t, err, domain.ErrStoryLocked)

	// Closing the first session frees the story.
	require.NoError(t, first.Close(ctx))
	second, err := editor.Open(ctx, storage, editor.Options{Locks: locks, StoryKey: "story-a"})
	require.NoError(t, err)
	second.Close(ctx)
}

func TestReloadPicksUpExternalEdits(t *testing.T) {
	ctx := context.Background()
	storage, repo := testutils.SetupStory(t)
	sess, err := editor.Open(ctx, storage, editor.Options{Debounce: time.Hour})
	require.NoError(t, err)
	defer sess.Close(ctx)

	testutils.SeedNodes(t, repo, &domain.Node{
		ID:       5,
		Messages: []domain.Message{domain.NewTextMessage("anna", "external")},
	})

	require.NoError(t, sess.Reload(ctx))
	n, ok := sess.Node(5)
	require.True(t, ok)
	assert.Equal(t, "external", n.Messages[0].Text)
}

func TestReloadConcurrentWithEdits(t *testing.T) {
	// Reload swaps the node set and relayouts under one lock, so edits
	// racing a reload always land on a consistent store/layout pair.
	ctx := context.Background()
	storage, repo := testutils.SetupStory(t)
	sess, err := editor.Open(ctx, storage, editor.Options{Debounce: time.Hour})
	require.NoError(t, err)
	defer sess.Close(ctx)

	testutils.SeedNodes(t, repo, &domain.Node{ID: 7})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			_ = sess.AddMessage(0, 0, domain.NewTextMessage("anna", "hi"))
		}
	}()
	for i := 0; i < 20; i++ {
		require.NoError(t, sess.Reload(ctx))
	}
	<-done

	// Every node the store knows has a position in the final layout.
	res := sess.Layout()
	for _, id := range sess.Store().IDs() {
		assert.Contains(t, res.Positions, id, "node %d", id)
	}
}
