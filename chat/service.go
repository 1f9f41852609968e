package chat

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

// Kind discriminates the three conversation flavors. They share storage
// and behavior; only event names and display fields differ.
type Kind string

const (
	KindDirect  Kind = "direct"
	KindGroup   Kind = "group"
	KindProduct Kind = "product"
)

// eventNames are the websocket event types emitted per kind.
type eventNames struct {
	message string
	update  string
	read    string
}

var eventsByKind = map[Kind]eventNames{
	KindDirect:  {message: "newMessage", update: "conversationUpdate", read: "messagesRead"},
	KindGroup:   {message: "messageGroupe", update: "groupeUpdate", read: "messagesGroupeRead"},
	KindProduct: {message: "messageProduct", update: "chatProductUpdate", read: "messagesProductRead"},
}

// Broadcaster is the realtime surface the service pushes events
// through. Room delivery reaches connections that joined the
// conversation's room; user delivery reaches participants wherever
// they are in the app.
type Broadcaster interface {
	ToRoom(room string, event string, payload interface{})
	ToUsers(userIDs []int64, event string, payload interface{})
}

// Room returns the room name a client must join to receive live
// messages for a conversation.
func Room(conversationID int64) string {
	return fmt.Sprintf("conv:%d", conversationID)
}

// Service implements conversations, messages, unread counters and
// group membership on top of the shared conversations tables.
type Service struct {
	db     *sql.DB
	events Broadcaster
}

func NewService(db *sql.DB, events Broadcaster) *Service {
	return &Service{db: db, events: events}
}

// GetOrCreate returns the direct or product conversation between the
// sender and receiver, creating it when none exists. Both orderings of
// the pair resolve to the same conversation. It returns the
// conversation ID and whether it was created by this call.
func (s *Service) GetOrCreate(kind Kind, senderID, receiverID int64, productID *int64) (int64, bool, error) {
	if kind != KindDirect && kind != KindProduct {
		return 0, false, ErrInvalidOperation
	}
	if senderID == receiverID {
		return 0, false, ErrSelfConversation
	}
	if kind == KindProduct && productID == nil {
		return 0, false, ErrInvalidOperation
	}

	query := `
		SELECT c.id FROM conversations c
		JOIN conversation_participants a ON a.conversation_id = c.id AND a.user_id = ?
		JOIN conversation_participants b ON b.conversation_id = c.id AND b.user_id = ?
		WHERE c.kind = ?`
	args := []interface{}{senderID, receiverID, string(kind)}
	if kind == KindProduct {
		query += ` AND c.product_id = ?`
		args = append(args, *productID)
	}

	var convID int64
	err := s.db.QueryRow(query, args...).Scan(&convID)
	if err == nil {
		return convID, false, nil
	}
	if err != sql.ErrNoRows {
		return 0, false, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO conversations (kind, creator_id, product_id) VALUES (?, ?, ?)`,
		string(kind), senderID, productID)
	if err != nil {
		return 0, false, err
	}
	convID, err = res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	for _, uid := range []int64{senderID, receiverID} {
		if _, err := tx.Exec(
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`,
			convID, uid); err != nil {
			return 0, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}

	util.Logger.Info("conversation created",
		zap.Int64("conversationID", convID), zap.String("kind", string(kind)))
	return convID, true, nil
}

// Append stores a message, bumps every other participant's unread
// counter, refreshes the conversation's last message, and pushes the
// message to the conversation room plus a summary update to each
// participant.
func (s *Service) Append(conversationID, senderID int64, body, image string) (*models.MessageResponse, error) {
	if strings.TrimSpace(body) == "" && image == "" {
		return nil, ErrInvalidOperation
	}

	kind, err := s.conversationKind(conversationID)
	if err != nil {
		return nil, err
	}
	participants, err := s.participantIDs(conversationID)
	if err != nil {
		return nil, err
	}
	if !contains(participants, senderID) {
		return nil, ErrUnauthorized
	}

	// Direct and product conversations have exactly one counterpart;
	// group messages carry no single receiver.
	var receiverID *int64
	if kind != KindGroup {
		for _, uid := range participants {
			if uid != senderID {
				id := uid
				receiverID = &id
				break
			}
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.Exec(
		`INSERT INTO messages (conversation_id, sender_id, receiver_id, body, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, senderID, receiverID, body, image, now)
	if err != nil {
		return nil, err
	}
	msgID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE conversation_participants SET unread_count = unread_count + 1
		 WHERE conversation_id = ? AND user_id != ?`,
		conversationID, senderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`UPDATE conversations SET last_message_id = ?, updated_at = ? WHERE id = ?`,
		msgID, now, conversationID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	msg, err := s.message(msgID)
	if err != nil {
		return nil, err
	}

	names := eventsByKind[kind]
	s.events.ToRoom(Room(conversationID), names.message, msg)
	s.notifyParticipants(conversationID, kind, participants, names.update)
	return msg, nil
}

// MarkRead zeroes the caller's unread counter and flags the messages
// addressed to them as read. Calling it again is a no-op.
func (s *Service) MarkRead(conversationID, userID int64) error {
	kind, err := s.conversationKind(conversationID)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE conversation_participants SET unread_count = 0
		 WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUnauthorized
	}
	// Group messages have no receiver column; anything the caller did
	// not send counts as addressed to them.
	if kind == KindGroup {
		_, err = s.db.Exec(
			`UPDATE messages SET is_read = TRUE
			 WHERE conversation_id = ? AND sender_id != ? AND is_read = FALSE`,
			conversationID, userID)
	} else {
		_, err = s.db.Exec(
			`UPDATE messages SET is_read = TRUE
			 WHERE conversation_id = ? AND receiver_id = ? AND is_read = FALSE`,
			conversationID, userID)
	}
	if err != nil {
		return err
	}

	s.events.ToRoom(Room(conversationID), eventsByKind[kind].read,
		map[string]interface{}{"conversationId": conversationID, "readerId": userID})
	return nil
}

// ListForUser returns the caller's conversations of the given kind,
// most recently active first.
func (s *Service) ListForUser(userID int64, kind Kind) ([]models.ConversationResponse, error) {
	rows, err := s.db.Query(
		`SELECT c.id FROM conversations c
		 JOIN conversation_participants p ON p.conversation_id = c.id
		 WHERE p.user_id = ? AND c.kind = ?
		 ORDER BY c.updated_at DESC`,
		userID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	list := make([]models.ConversationResponse, 0, len(ids))
	for _, id := range ids {
		conv, err := s.summaryFor(id, userID)
		if err != nil {
			return nil, err
		}
		list = append(list, *conv)
	}
	return list, nil
}

// Messages returns a conversation's messages oldest first. Only
// participants may read them.
func (s *Service) Messages(conversationID, userID int64) ([]models.MessageResponse, error) {
	if _, err := s.conversationKind(conversationID); err != nil {
		return nil, err
	}
	ok, err := s.isParticipant(conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	rows, err := s.db.Query(
		`SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.body,
		        COALESCE(m.image, ''), m.is_read, m.created_at,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM messages m
		 LEFT JOIN user_profiles up ON up.user_id = m.sender_id
		 WHERE m.conversation_id = ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.MessageResponse{}
	for rows.Next() {
		var m models.MessageResponse
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID,
			&m.Body, &m.Image, &m.IsRead, &m.CreatedAt,
			&m.SenderName, &m.SenderImage); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateGroup creates a group conversation with the creator and the
// listed members, then posts the opening message so the group shows up
// in everyone's inbox immediately.
func (s *Service) CreateGroup(creatorID int64, name, image string, memberIDs []int64) (*models.GroupInfoResponse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidOperation
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO conversations (kind, name, image, creator_id) VALUES (?, ?, ?, ?)`,
		string(KindGroup), name, image, creatorID)
	if err != nil {
		return nil, err
	}
	convID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{creatorID: true}
	members := []int64{creatorID}
	for _, uid := range memberIDs {
		if !seen[uid] {
			seen[uid] = true
			members = append(members, uid)
		}
	}
	for _, uid := range members {
		if _, err := tx.Exec(
			`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`,
			convID, uid); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	if _, err := s.Append(convID, creatorID, "Group "+name+" created", ""); err != nil {
		return nil, err
	}

	util.Logger.Info("group created",
		zap.Int64("conversationID", convID), zap.Int64("creatorID", creatorID),
		zap.Int("members", len(members)))
	return s.GroupInfo(convID)
}

// UpdateGroup renames a group or swaps its image. Only the creator may
// do this.
func (s *Service) UpdateGroup(conversationID, actorID int64, name, image string) error {
	if err := s.requireCreator(conversationID, actorID); err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return ErrInvalidOperation
	}
	if _, err := s.db.Exec(
		`UPDATE conversations SET name = ?, image = ?, updated_at = ? WHERE id = ?`,
		name, image, time.Now().UTC(), conversationID); err != nil {
		return err
	}
	participants, err := s.participantIDs(conversationID)
	if err != nil {
		return err
	}
	s.notifyParticipants(conversationID, KindGroup, participants, eventsByKind[KindGroup].update)
	return nil
}

// AddMember adds a user to a group. Any current member may invite.
func (s *Service) AddMember(conversationID, actorID, userID int64) error {
	if _, err := s.requireGroup(conversationID); err != nil {
		return err
	}
	ok, err := s.isParticipant(conversationID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	already, err := s.isParticipant(conversationID, userID)
	if err != nil {
		return err
	}
	if already {
		return ErrInvalidOperation
	}
	if _, err := s.db.Exec(
		`INSERT INTO conversation_participants (conversation_id, user_id) VALUES (?, ?)`,
		conversationID, userID); err != nil {
		return err
	}
	participants, err := s.participantIDs(conversationID)
	if err != nil {
		return err
	}
	s.notifyParticipants(conversationID, KindGroup, participants, eventsByKind[KindGroup].update)
	return nil
}

// RemoveMember removes a user from a group. The creator may remove
// anyone; other members may only remove themselves.
func (s *Service) RemoveMember(conversationID, actorID, userID int64) error {
	creatorID, err := s.requireGroup(conversationID)
	if err != nil {
		return err
	}
	if actorID != creatorID && actorID != userID {
		return ErrUnauthorized
	}
	if userID == creatorID {
		return ErrInvalidOperation
	}
	res, err := s.db.Exec(
		`DELETE FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	participants, err := s.participantIDs(conversationID)
	if err != nil {
		return err
	}
	s.notifyParticipants(conversationID, KindGroup, participants, eventsByKind[KindGroup].update)
	return nil
}

// GroupInfo returns a group's metadata and member list.
func (s *Service) GroupInfo(conversationID int64) (*models.GroupInfoResponse, error) {
	var info models.GroupInfoResponse
	err := s.db.QueryRow(
		`SELECT id, COALESCE(name, ''), COALESCE(image, ''), creator_id, created_at
		 FROM conversations WHERE id = ? AND kind = ?`,
		conversationID, string(KindGroup)).
		Scan(&info.ID, &info.Name, &info.Image, &info.CreatorID, &info.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	members, err := s.Members(conversationID)
	if err != nil {
		return nil, err
	}
	info.Members = members
	return &info, nil
}

// Members returns the users in a conversation with display fields.
func (s *Service) Members(conversationID int64) ([]models.UserResponse, error) {
	rows, err := s.db.Query(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM conversation_participants p
		 JOIN users u ON u.id = p.user_id
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE p.conversation_id = ?
		 ORDER BY u.id`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.UserResponse{}
	for rows.Next() {
		var u models.UserResponse
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.FullName, &u.ProfileImage); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

func (s *Service) conversationKind(conversationID int64) (Kind, error) {
	var kind string
	err := s.db.QueryRow(`SELECT kind FROM conversations WHERE id = ?`, conversationID).Scan(&kind)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Kind(kind), nil
}

func (s *Service) requireGroup(conversationID int64) (int64, error) {
	var kind string
	var creatorID int64
	err := s.db.QueryRow(
		`SELECT kind, creator_id FROM conversations WHERE id = ?`, conversationID).
		Scan(&kind, &creatorID)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if Kind(kind) != KindGroup {
		return 0, ErrInvalidOperation
	}
	return creatorID, nil
}

func (s *Service) requireCreator(conversationID, actorID int64) error {
	creatorID, err := s.requireGroup(conversationID)
	if err != nil {
		return err
	}
	if actorID != creatorID {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) isParticipant(conversationID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM conversation_participants WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) participantIDs(conversationID int64) ([]int64, error) {
	rows, err := s.db.Query(
		`SELECT user_id FROM conversation_participants WHERE conversation_id = ?`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Service) message(messageID int64) (*models.MessageResponse, error) {
	var m models.MessageResponse
	err := s.db.QueryRow(
		`SELECT m.id, m.conversation_id, m.sender_id, m.receiver_id, m.body,
		        COALESCE(m.image, ''), m.is_read, m.created_at,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM messages m
		 LEFT JOIN user_profiles up ON up.user_id = m.sender_id
		 WHERE m.id = ?`,
		messageID).
		Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.ReceiverID, &m.Body,
			&m.Image, &m.IsRead, &m.CreatedAt, &m.SenderName, &m.SenderImage)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// summaryFor builds the inbox row for one participant: their unread
// counter, the last message, and the display name for the kind.
func (s *Service) summaryFor(conversationID, userID int64) (*models.ConversationResponse, error) {
	var c models.ConversationResponse
	var name, image sql.NullString
	var lastMessageID sql.NullInt64
	err := s.db.QueryRow(
		`SELECT c.id, c.kind, c.name, c.image, COALESCE(c.creator_id, 0),
		        c.product_id, c.last_message_id, c.updated_at, p.unread_count
		 FROM conversations c
		 JOIN conversation_participants p ON p.conversation_id = c.id AND p.user_id = ?
		 WHERE c.id = ?`,
		userID, conversationID).
		Scan(&c.ID, &c.Kind, &name, &image, &c.CreatorID,
			&c.ProductID, &lastMessageID, &c.UpdatedAt, &c.UnreadCount)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Name = name.String
	c.Image = image.String

	switch Kind(c.Kind) {
	case KindDirect:
		err = s.db.QueryRow(
			`SELECT COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
			 FROM conversation_participants p
			 LEFT JOIN user_profiles up ON up.user_id = p.user_id
			 WHERE p.conversation_id = ? AND p.user_id != ?`,
			conversationID, userID).Scan(&c.Name, &c.Image)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
	case KindProduct:
		if c.ProductID != nil {
			err = s.db.QueryRow(
				`SELECT title, COALESCE(image, '') FROM products WHERE id = ?`,
				*c.ProductID).Scan(&c.Name, &c.Image)
			if err != nil && err != sql.ErrNoRows {
				return nil, err
			}
		}
	}

	if lastMessageID.Valid {
		msg, err := s.message(lastMessageID.Int64)
		if err != nil && err != ErrNotFound {
			return nil, err
		}
		c.LastMessage = msg
	}
	return &c, nil
}

// notifyParticipants pushes each participant their own view of the
// conversation, so unread counters stay per-user.
func (s *Service) notifyParticipants(conversationID int64, kind Kind, participants []int64, event string) {
	for _, uid := range participants {
		conv, err := s.summaryFor(conversationID, uid)
		if err != nil {
			util.Logger.Warn("conversation summary failed",
				zap.Int64("conversationID", conversationID),
				zap.Int64("userID", uid), zap.Error(err))
			continue
		}
		s.events.ToUsers([]int64{uid}, event, conv)
	}
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
