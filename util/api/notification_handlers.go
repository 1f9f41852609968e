package api

import (
	"net/http"
	"strconv"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
)

// GetNotificationsHandler lists the caller's notifications, newest
// first.
func GetNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	rows, err := database.DB.Query(
		`SELECT id, recipient_id, sender_id, type, is_read, created_at
		 FROM notifications
		 WHERE recipient_id = ?
		 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		http.Error(w, "Failed to load notifications: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	notifs := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
			http.Error(w, "Failed to scan notification: "+err.Error(), http.StatusInternalServerError)
			return
		}
		notifs = append(notifs, n)
	}
	writeJSON(w, http.StatusOK, notifs)
}

// MarkNotificationReadHandler flags one of the caller's notifications
// as read.
func MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	notifID, err := strconv.ParseInt(r.PathValue("notificationID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(
		`UPDATE notifications SET is_read = TRUE WHERE id = ? AND recipient_id = ?`,
		notifID, userID)
	if err != nil {
		http.Error(w, "Failed to update notification: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}
