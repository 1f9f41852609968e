package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NajehRouin/Seekras-api/chat"
	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/middleware"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/realtime"
	"github.com/NajehRouin/Seekras-api/util"
)

var apiTestDBCounter int

func setupAPI(t *testing.T) {
	t.Helper()
	apiTestDBCounter++
	dsn := fmt.Sprintf("file:api_test_%d?mode=memory&cache=shared", apiTestDBCounter)
	require.NoError(t, database.InitDB(dsn))
	t.Cleanup(func() { database.DB.Close() })

	h := realtime.NewHub()
	Init(h, chat.NewService(database.DB, h))
	util.SetJWTSecret("test-secret")
}

func createUser(t *testing.T, email string, public bool) int64 {
	t.Helper()
	res, err := database.DB.Exec(
		`INSERT INTO users (first_name, last_name, email, password_hash) VALUES ('Test', 'User', ?, 'x')`,
		email)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	_, err = database.DB.Exec(
		`INSERT INTO user_profiles (user_id, full_name, profil_public) VALUES (?, 'Test User', ?)`,
		id, public)
	require.NoError(t, err)
	return id
}

// doJSON runs a handler as the given user and decodes the JSON reply.
func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, userID int64,
	body interface{}, pathValues map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func createPost(t *testing.T, userID int64, content string) int64 {
	t.Helper()
	rec, resp := doJSON(t, CreatePostHandler, http.MethodPost, "/posts", userID,
		map[string]interface{}{"content": content}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return int64(resp["id"].(float64))
}

func TestFilterPostByAuthorName(t *testing.T) {
	setupAPI(t)
	rider := createUser(t, "rider@test.dev", true)
	_, err := database.DB.Exec(
		`UPDATE users SET first_name = 'Amina', last_name = 'Kallel' WHERE id = ?`, rider)
	require.NoError(t, err)
	other := createUser(t, "other@test.dev", true)
	viewer := createUser(t, "viewer@test.dev", true)

	matching := createPost(t, rider, "dune crossing")
	createPost(t, other, "city walk")

	req := httptest.NewRequest(http.MethodGet, "/filterPost?name=amin", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, viewer))
	rec := httptest.NewRecorder()
	FilterPostHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []models.PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, matching, posts[0].ID)
	assert.Equal(t, rider, posts[0].UserID)

	// No fragment returns every active post.
	req = httptest.NewRequest(http.MethodGet, "/filterPost", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, viewer))
	rec = httptest.NewRecorder()
	FilterPostHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 2)
}

func TestGetUserByEmail(t *testing.T) {
	setupAPI(t)
	createUser(t, "known@test.dev", true)

	rec, resp := doJSON(t, GetUserByEmailHandler, http.MethodPost, "/getUserByEmail", 0,
		map[string]interface{}{"email": "Known@Test.dev"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["found"])
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "known@test.dev", user["email"])

	rec, resp = doJSON(t, GetUserByEmailHandler, http.MethodPost, "/getUserByEmail", 0,
		map[string]interface{}{"email": "missing@test.dev"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["found"])
}

func TestLikeToggleRestoresCounter(t *testing.T) {
	setupAPI(t)
	author := createUser(t, "author@test.dev", true)
	liker := createUser(t, "liker@test.dev", true)
	postID := createPost(t, author, "sunset ride")

	rec, resp := doJSON(t, LikePostHandler, http.MethodPost, "/posts/like", liker,
		map[string]interface{}{"postId": postID, "reaction": "love"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["liked"])
	assert.Equal(t, float64(1), resp["likesCount"])

	rec, resp = doJSON(t, LikePostHandler, http.MethodPost, "/posts/like", liker,
		map[string]interface{}{"postId": postID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["liked"])
	assert.Equal(t, float64(0), resp["likesCount"])
}

func TestDeleteCommentCascadesReplies(t *testing.T) {
	setupAPI(t)
	author := createUser(t, "author@test.dev", true)
	commenter := createUser(t, "commenter@test.dev", true)
	postID := createPost(t, author, "trail report")

	rec, parent := doJSON(t, CommentPostHandler, http.MethodPost, "/comment-post", commenter,
		map[string]interface{}{"postId": postID, "content": "looks great"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	parentID := int64(parent["id"].(float64))

	for i := 0; i < 2; i++ {
		rec, _ = doJSON(t, CommentPostHandler, http.MethodPost, "/comment-post", author,
			map[string]interface{}{"postId": postID, "parentCommentId": parentID,
				"content": fmt.Sprintf("reply %d", i)}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var count int
	require.NoError(t, database.DB.QueryRow(
		`SELECT comments_count FROM posts WHERE id = ?`, postID).Scan(&count))
	assert.Equal(t, 3, count)

	rec, resp := doJSON(t, DeleteCommentHandler, http.MethodDelete, "/comment-post/x", commenter,
		nil, map[string]string{"commentID": strconv.FormatInt(parentID, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), resp["removed"])

	require.NoError(t, database.DB.QueryRow(
		`SELECT comments_count FROM posts WHERE id = ?`, postID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestReplyToReplyRejected(t *testing.T) {
	setupAPI(t)
	author := createUser(t, "author@test.dev", true)
	postID := createPost(t, author, "gear question")

	_, parent := doJSON(t, CommentPostHandler, http.MethodPost, "/comment-post", author,
		map[string]interface{}{"postId": postID, "content": "top level"}, nil)
	parentID := int64(parent["id"].(float64))

	rec, reply := doJSON(t, CommentPostHandler, http.MethodPost, "/comment-post", author,
		map[string]interface{}{"postId": postID, "parentCommentId": parentID, "content": "reply"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	replyID := int64(reply["id"].(float64))

	rec, _ = doJSON(t, CommentPostHandler, http.MethodPost, "/comment-post", author,
		map[string]interface{}{"postId": postID, "parentCommentId": replyID, "content": "too deep"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFriendRequestPublicProfileAutoAccepts(t *testing.T) {
	setupAPI(t)
	sender := createUser(t, "sender@test.dev", true)
	target := createUser(t, "target@test.dev", true)

	rec, resp := doJSON(t, FriendRequestHandler, http.MethodPost, "/friend-request/x", sender,
		nil, map[string]string{"targetID": strconv.FormatInt(target, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["accepted"])

	var friends, mirrored, follows bool
	require.NoError(t, database.DB.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?),
		        EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?),
		        EXISTS(SELECT 1 FROM follows WHERE follower_id = ? AND followed_id = ?)`,
		sender, target, target, sender, sender, target).Scan(&friends, &mirrored, &follows))
	assert.True(t, friends)
	assert.True(t, mirrored)
	assert.True(t, follows)

	// Auto-accept creates no notification for either side.
	var notifications int
	require.NoError(t, database.DB.QueryRow(
		`SELECT COUNT(*) FROM notifications`).Scan(&notifications))
	assert.Zero(t, notifications)
}

func TestFriendRequestAutoAcceptClearsReversePending(t *testing.T) {
	setupAPI(t)
	sender := createUser(t, "sender@test.dev", true)
	target := createUser(t, "target@test.dev", true)

	// Target already asked the sender before the sender reached out.
	_, err := database.DB.Exec(
		`INSERT INTO friend_requests (sender_id, target_id) VALUES (?, ?)`, target, sender)
	require.NoError(t, err)

	rec, resp := doJSON(t, FriendRequestHandler, http.MethodPost, "/friend-request/x", sender,
		nil, map[string]string{"targetID": strconv.FormatInt(target, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["accepted"])

	// The stale pending entry is gone once the friendship exists.
	var pending int
	require.NoError(t, database.DB.QueryRow(
		`SELECT COUNT(*) FROM friend_requests`).Scan(&pending))
	assert.Zero(t, pending)

	var friends bool
	require.NoError(t, database.DB.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?)`,
		sender, target).Scan(&friends))
	assert.True(t, friends)
}

func TestFriendRequestPrivateProfileStaysPending(t *testing.T) {
	setupAPI(t)
	sender := createUser(t, "sender@test.dev", true)
	target := createUser(t, "target@test.dev", false)

	rec, resp := doJSON(t, FriendRequestHandler, http.MethodPost, "/friend-request/x", sender,
		nil, map[string]string{"targetID": strconv.FormatInt(target, 10)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, resp["accepted"])
	assert.Equal(t, true, resp["pending"])

	// Duplicate request is rejected.
	rec, _ = doJSON(t, FriendRequestHandler, http.MethodPost, "/friend-request/x", sender,
		nil, map[string]string{"targetID": strconv.FormatInt(target, 10)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doJSON(t, AcceptFriendHandler, http.MethodPost, "/accept-friend/x", target,
		nil, map[string]string{"senderID": strconv.FormatInt(sender, 10)})
	require.Equal(t, http.StatusOK, rec.Code)

	var friends bool
	require.NoError(t, database.DB.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM friends WHERE user_id = ? AND friend_id = ?)`,
		sender, target).Scan(&friends))
	assert.True(t, friends)
}

func TestAcceptWithoutPendingRequest(t *testing.T) {
	setupAPI(t)
	a := createUser(t, "a@test.dev", false)
	b := createUser(t, "b@test.dev", false)

	rec, _ := doJSON(t, AcceptFriendHandler, http.MethodPost, "/accept-friend/x", a,
		nil, map[string]string{"senderID": strconv.FormatInt(b, 10)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func createProduct(t *testing.T, userID int64, title string) int64 {
	t.Helper()
	rec, resp := doJSON(t, CreateProductHandler, http.MethodPost, "/products", userID,
		map[string]interface{}{"title": title, "price": 50.0}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	return int64(resp["id"].(float64))
}

func TestProductStatusTransitions(t *testing.T) {
	setupAPI(t)
	seller := createUser(t, "seller@test.dev", true)
	buyer := createUser(t, "buyer@test.dev", true)
	productID := createProduct(t, seller, "Kayak")
	pathVals := map[string]string{"productID": strconv.FormatInt(productID, 10)}

	// Same status again is a no-op and rejected.
	rec, _ := doJSON(t, UpdateProductStatusHandler, http.MethodPost, "/products/x/status", seller,
		map[string]interface{}{"status": "active"}, pathVals)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, UpdateProductStatusHandler, http.MethodPost, "/products/x/status", seller,
		map[string]interface{}{"status": "parked"}, pathVals)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, UpdateProductStatusHandler, http.MethodPost, "/products/x/status", buyer,
		map[string]interface{}{"status": "sold"}, pathVals)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp := doJSON(t, UpdateProductStatusHandler, http.MethodPost, "/products/x/status", seller,
		map[string]interface{}{"status": "sold"}, pathVals)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sold", resp["status"])
}

func TestProductViewCounter(t *testing.T) {
	setupAPI(t)
	seller := createUser(t, "seller@test.dev", true)
	viewer := createUser(t, "viewer@test.dev", true)
	productID := createProduct(t, seller, "Tent")
	pathVals := map[string]string{"productID": strconv.FormatInt(productID, 10)}

	for i := 1; i <= 3; i++ {
		rec, resp := doJSON(t, ViewProductHandler, http.MethodPost, "/products/x/view", viewer,
			nil, pathVals)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(i), resp["views"])
	}
}

func TestDeletePostOnlyAuthor(t *testing.T) {
	setupAPI(t)
	author := createUser(t, "author@test.dev", true)
	other := createUser(t, "other@test.dev", true)
	postID := createPost(t, author, "for sale")

	rec, _ := doJSON(t, DeletePostHandler, http.MethodDelete, "/delete-post", other,
		map[string]interface{}{"postId": postID}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = doJSON(t, DeletePostHandler, http.MethodDelete, "/delete-post", author,
		map[string]interface{}{"postId": postID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deactivated posts disappear from feeds but the row survives.
	rec, _ = doJSON(t, PostByIDHandler, http.MethodPost, "/postById", author,
		map[string]interface{}{"postId": postID}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var active bool
	require.NoError(t, database.DB.QueryRow(
		`SELECT active FROM posts WHERE id = ?`, postID).Scan(&active))
	assert.False(t, active)
}

func TestShareAndUnshare(t *testing.T) {
	setupAPI(t)
	author := createUser(t, "author@test.dev", true)
	sharer := createUser(t, "sharer@test.dev", true)
	postID := createPost(t, author, "route map")

	rec, resp := doJSON(t, SharePostHandler, http.MethodPost, "/share", sharer,
		map[string]interface{}{"postId": postID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp["shared"])
	assert.Equal(t, float64(1), resp["sharesCount"])

	// Shares accumulate; sharing again adds another record.
	rec, resp = doJSON(t, SharePostHandler, http.MethodPost, "/share", sharer,
		map[string]interface{}{"postId": postID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), resp["sharesCount"])

	pathVals := map[string]string{"postID": fmt.Sprint(postID)}
	rec, resp = doJSON(t, UnsharePostHandler, http.MethodDelete, "/shared/1", sharer, nil, pathVals)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), resp["removed"])
	assert.Equal(t, float64(0), resp["sharesCount"])

	// Unsharing with nothing left is a no-op.
	rec, resp = doJSON(t, UnsharePostHandler, http.MethodDelete, "/shared/1", sharer, nil, pathVals)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), resp["removed"])
	assert.Equal(t, float64(0), resp["sharesCount"])
}

func TestConversationEndpointsRoundTrip(t *testing.T) {
	setupAPI(t)
	alice := createUser(t, "alice@test.dev", true)
	bob := createUser(t, "bob@test.dev", true)

	rec, resp := doJSON(t, CreateConversationHandler, http.MethodPost, "/conversations", alice,
		map[string]interface{}{"receiverId": bob, "body": "is the kayak available?"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	convID := strconv.FormatInt(int64(resp["conversationId"].(float64)), 10)
	pathVals := map[string]string{"conversationID": convID}

	rec, _ = doJSON(t, SendMessageHandler, http.MethodPost, "/conversations/x/messages", bob,
		map[string]interface{}{"body": "yes, still here"}, pathVals)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/conversations/x/messages", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, alice))
	req.SetPathValue("conversationID", convID)
	msgRec := httptest.NewRecorder()
	ConversationMessagesHandler(msgRec, req)
	require.Equal(t, http.StatusOK, msgRec.Code)

	var msgs []map[string]interface{}
	require.NoError(t, json.Unmarshal(msgRec.Body.Bytes(), &msgs))
	assert.Len(t, msgs, 2)

	rec, _ = doJSON(t, MarkConversationReadHandler, http.MethodPut, "/conversations/x/read", alice,
		nil, pathVals)
	require.Equal(t, http.StatusOK, rec.Code)

	// An outsider cannot read the thread.
	mallory := createUser(t, "mallory@test.dev", true)
	rec, _ = doJSON(t, ConversationMessagesHandler, http.MethodGet, "/conversations/x/messages",
		mallory, nil, pathVals)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
