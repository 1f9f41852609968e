package chat

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NajehRouin/Seekras-api/database"
)

// recordingBroadcaster captures every event the service emits so tests
// can assert on names and targets.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	room    string
	userIDs []int64
	event   string
}

func (r *recordingBroadcaster) ToRoom(room string, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{room: room, event: event})
}

func (r *recordingBroadcaster) ToUsers(userIDs []int64, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userIDs: userIDs, event: event})
}

func (r *recordingBroadcaster) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.event
	}
	return out
}

var testDBCounter int

func newTestService(t *testing.T) (*Service, *recordingBroadcaster) {
	t.Helper()
	testDBCounter++
	dsn := fmt.Sprintf("file:chat_test_%d?mode=memory&cache=shared", testDBCounter)
	require.NoError(t, database.InitDB(dsn))
	t.Cleanup(func() { database.DB.Close() })

	events := &recordingBroadcaster{}
	return NewService(database.DB, events), events
}

func seedUsers(t *testing.T, db *sql.DB, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 1; i <= n; i++ {
		res, err := db.Exec(
			`INSERT INTO users (first_name, last_name, email, password_hash) VALUES (?, ?, ?, 'x')`,
			fmt.Sprintf("User%d", i), "Test", fmt.Sprintf("user%d@test.dev", i))
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		_, err = db.Exec(
			`INSERT INTO user_profiles (user_id, full_name) VALUES (?, ?)`,
			id, fmt.Sprintf("User%d Test", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func unreadCount(t *testing.T, db *sql.DB, convID, userID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT unread_count FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`,
		convID, userID).Scan(&n))
	return n
}

func TestGetOrCreateReturnsSameConversationEitherOrder(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 2)

	convID, created, err := svc.GetOrCreate(KindDirect, users[0], users[1], nil)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.GetOrCreate(KindDirect, users[1], users[0], nil)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, convID, again)
}

func TestGetOrCreateRejectsSelf(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 1)

	_, _, err := svc.GetOrCreate(KindDirect, users[0], users[0], nil)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestGetOrCreateProductKeyedByProduct(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 2)

	var productIDs []int64
	for i := 0; i < 2; i++ {
		res, err := database.DB.Exec(
			`INSERT INTO products (user_id, title, price, image) VALUES (?, ?, 10, '')`,
			users[1], fmt.Sprintf("Bike %d", i))
		require.NoError(t, err)
		id, err := res.LastInsertId()
		require.NoError(t, err)
		productIDs = append(productIDs, id)
	}

	first, _, err := svc.GetOrCreate(KindProduct, users[0], users[1], &productIDs[0])
	require.NoError(t, err)
	second, _, err := svc.GetOrCreate(KindProduct, users[0], users[1], &productIDs[1])
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	reused, created, err := svc.GetOrCreate(KindProduct, users[1], users[0], &productIDs[0])
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first, reused)

	_, _, err = svc.GetOrCreate(KindProduct, users[0], users[1], nil)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestAppendBumpsUnreadAndLastMessage(t *testing.T) {
	svc, events := newTestService(t)
	users := seedUsers(t, database.DB, 2)

	convID, _, err := svc.GetOrCreate(KindDirect, users[0], users[1], nil)
	require.NoError(t, err)

	msg, err := svc.Append(convID, users[0], "hello", "")
	require.NoError(t, err)
	assert.Equal(t, users[0], msg.SenderID)
	require.NotNil(t, msg.ReceiverID)
	assert.Equal(t, users[1], *msg.ReceiverID)

	assert.Equal(t, 1, unreadCount(t, database.DB, convID, users[1]))
	assert.Equal(t, 0, unreadCount(t, database.DB, convID, users[0]))

	list, err := svc.ListForUser(users[1], KindDirect)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].UnreadCount)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "hello", list[0].LastMessage.Body)
	assert.Equal(t, "User1 Test", list[0].Name)

	assert.Contains(t, events.names(), "newMessage")
	assert.Contains(t, events.names(), "conversationUpdate")
}

func TestAppendRejectsOutsiderAndEmptyBody(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 3)

	convID, _, err := svc.GetOrCreate(KindDirect, users[0], users[1], nil)
	require.NoError(t, err)

	_, err = svc.Append(convID, users[2], "hi", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Append(convID, users[0], "   ", "")
	assert.ErrorIs(t, err, ErrInvalidOperation)

	_, err = svc.Append(convID+999, users[0], "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, events := newTestService(t)
	users := seedUsers(t, database.DB, 2)

	convID, _, err := svc.GetOrCreate(KindDirect, users[0], users[1], nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := svc.Append(convID, users[0], fmt.Sprintf("msg %d", i), "")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, unreadCount(t, database.DB, convID, users[1]))

	require.NoError(t, svc.MarkRead(convID, users[1]))
	assert.Equal(t, 0, unreadCount(t, database.DB, convID, users[1]))

	require.NoError(t, svc.MarkRead(convID, users[1]))
	assert.Equal(t, 0, unreadCount(t, database.DB, convID, users[1]))

	msgs, err := svc.Messages(convID, users[1])
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.IsRead)
	}
	assert.Contains(t, events.names(), "messagesRead")
}

func TestCreateGroupAddsCreatorAndOpeningMessage(t *testing.T) {
	svc, events := newTestService(t)
	users := seedUsers(t, database.DB, 3)

	info, err := svc.CreateGroup(users[0], "Hiking", "", []int64{users[1], users[2], users[1]})
	require.NoError(t, err)
	assert.Equal(t, "Hiking", info.Name)
	assert.Equal(t, users[0], info.CreatorID)
	assert.Len(t, info.Members, 3)

	msgs, err := svc.Messages(info.ID, users[1])
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Group Hiking created", msgs[0].Body)

	// The opening message counts as unread for everyone but the creator.
	assert.Equal(t, 1, unreadCount(t, database.DB, info.ID, users[1]))
	assert.Equal(t, 0, unreadCount(t, database.DB, info.ID, users[0]))

	assert.Contains(t, events.names(), "messageGroupe")
	assert.Contains(t, events.names(), "groupeUpdate")
}

func TestGroupMembership(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 4)

	info, err := svc.CreateGroup(users[0], "Climbers", "", []int64{users[1]})
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(info.ID, users[1], users[2]))
	assert.ErrorIs(t, svc.AddMember(info.ID, users[1], users[2]), ErrInvalidOperation)
	assert.ErrorIs(t, svc.AddMember(info.ID, users[3], users[3]), ErrUnauthorized)

	// Members can leave, but only the creator removes others.
	assert.ErrorIs(t, svc.RemoveMember(info.ID, users[1], users[2]), ErrUnauthorized)
	require.NoError(t, svc.RemoveMember(info.ID, users[2], users[2]))
	require.NoError(t, svc.RemoveMember(info.ID, users[0], users[1]))
	assert.ErrorIs(t, svc.RemoveMember(info.ID, users[0], users[0]), ErrInvalidOperation)

	members, err := svc.Members(info.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestUpdateGroupOnlyCreator(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 2)

	info, err := svc.CreateGroup(users[0], "Old name", "", []int64{users[1]})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.UpdateGroup(info.ID, users[1], "New name", ""), ErrUnauthorized)
	require.NoError(t, svc.UpdateGroup(info.ID, users[0], "New name", ""))

	updated, err := svc.GroupInfo(info.ID)
	require.NoError(t, err)
	assert.Equal(t, "New name", updated.Name)
}

func TestGroupUnreadCountsAllButSender(t *testing.T) {
	svc, _ := newTestService(t)
	users := seedUsers(t, database.DB, 3)

	info, err := svc.CreateGroup(users[0], "Runners", "", []int64{users[1], users[2]})
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(info.ID, users[1]))
	require.NoError(t, svc.MarkRead(info.ID, users[2]))

	_, err = svc.Append(info.ID, users[1], "on my way", "")
	require.NoError(t, err)

	assert.Equal(t, 1, unreadCount(t, database.DB, info.ID, users[0]))
	assert.Equal(t, 0, unreadCount(t, database.DB, info.ID, users[1]))
	assert.Equal(t, 1, unreadCount(t, database.DB, info.ID, users[2]))
}
