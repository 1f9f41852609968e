package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

// CreateTripHandler plans a trip with its teammates, supply checklist
// and itinerary in one shot.
func CreateTripHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Location == "" || req.Date == "" {
		http.Error(w, "name, location and date are required", http.StatusBadRequest)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO trips (creator_id, name, location, date, description, sport_type, image, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, req.Name, req.Location, req.Date, req.Description, req.SportType,
		req.Image, time.Now().UTC())
	if err != nil {
		http.Error(w, "Failed to create trip: "+err.Error(), http.StatusInternalServerError)
		return
	}
	tripID, err := res.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve trip ID: "+err.Error(), http.StatusInternalServerError)
		return
	}

	teammates := append([]int64{userID}, req.TeammateIDs...)
	for _, uid := range teammates {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO trip_teammates (trip_id, user_id) VALUES (?, ?)`,
			tripID, uid); err != nil {
			http.Error(w, "Failed to add teammate: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	for _, s := range req.Supplies {
		if s.Name == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO trip_supplies (trip_id, name, assigned) VALUES (?, ?, ?)`,
			tripID, s.Name, s.Assigned); err != nil {
			http.Error(w, "Failed to add supply: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	for _, a := range req.Activities {
		if a.Name == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO trip_activities (trip_id, name, time, location) VALUES (?, ?, ?, ?)`,
			tripID, a.Name, a.Time, a.Location); err != nil {
			http.Error(w, "Failed to add activity: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	for _, uid := range req.TeammateIDs {
		if uid != userID {
			insertNotification(uid, userID, "trip_invite")
		}
	}

	trip, err := loadTrip(tripID)
	if err != nil {
		http.Error(w, "Failed to load trip: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("trip created", zap.Int64("tripID", tripID), zap.Int64("userID", userID))
	writeJSON(w, http.StatusCreated, trip)
}

func loadTrip(tripID int64) (*models.TripResponse, error) {
	var t models.TripResponse
	var description, sportType, image sql.NullString
	err := database.DB.QueryRow(
		`SELECT t.id, t.creator_id, t.name, t.location, t.date, t.description,
		        t.sport_type, t.image, t.created_at, COALESCE(up.full_name, '')
		 FROM trips t
		 LEFT JOIN user_profiles up ON up.user_id = t.creator_id
		 WHERE t.id = ?`, tripID).
		Scan(&t.ID, &t.CreatorID, &t.Name, &t.Location, &t.Date, &description,
			&sportType, &image, &t.CreatedAt, &t.CreatorName)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.SportType = sportType.String
	t.Image = image.String

	t.Teammates, err = queryUserList(
		`SELECT u.id, u.first_name, u.last_name,
		        COALESCE(up.full_name, ''), COALESCE(up.profile_image, '')
		 FROM trip_teammates tt
		 JOIN users u ON u.id = tt.user_id
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE tt.trip_id = ?
		 ORDER BY u.id`, tripID)
	if err != nil {
		return nil, err
	}

	supplyRows, err := database.DB.Query(
		`SELECT s.id, s.name, s.assigned, s.status, COALESCE(up.full_name, '')
		 FROM trip_supplies s
		 LEFT JOIN user_profiles up ON up.user_id = s.assigned
		 WHERE s.trip_id = ? ORDER BY s.id`, tripID)
	if err != nil {
		return nil, err
	}
	defer supplyRows.Close()
	t.Supplies = []models.TripSupplyResponse{}
	for supplyRows.Next() {
		var s models.TripSupplyResponse
		if err := supplyRows.Scan(&s.ID, &s.Name, &s.Assigned, &s.Status, &s.AssignedName); err != nil {
			return nil, err
		}
		t.Supplies = append(t.Supplies, s)
	}
	if err := supplyRows.Err(); err != nil {
		return nil, err
	}

	activityRows, err := database.DB.Query(
		`SELECT id, name, time, location FROM trip_activities WHERE trip_id = ? ORDER BY id`, tripID)
	if err != nil {
		return nil, err
	}
	defer activityRows.Close()
	t.Activities = []models.TripActivityResponse{}
	for activityRows.Next() {
		var a models.TripActivityResponse
		if err := activityRows.Scan(&a.ID, &a.Name, &a.Time, &a.Location); err != nil {
			return nil, err
		}
		t.Activities = append(t.Activities, a)
	}
	return &t, activityRows.Err()
}

// AllTripsHandler lists every trip, newest first.
func AllTripsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}

	rows, err := database.DB.Query(`SELECT id FROM trips ORDER BY created_at DESC, id DESC`)
	if err != nil {
		http.Error(w, "Failed to load trips: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			http.Error(w, "Failed to scan trip: "+err.Error(), http.StatusInternalServerError)
			return
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		http.Error(w, "Failed to read trips: "+err.Error(), http.StatusInternalServerError)
		return
	}

	trips := []models.TripResponse{}
	for _, id := range ids {
		trip, err := loadTrip(id)
		if err != nil {
			http.Error(w, "Failed to load trip: "+err.Error(), http.StatusInternalServerError)
			return
		}
		trips = append(trips, *trip)
	}
	writeJSON(w, http.StatusOK, trips)
}

// TripByIDHandler returns one trip with its teammates, supplies and
// itinerary. The trip ID comes in the body.
func TripByIDHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	var req struct {
		TripID int64 `json:"tripId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TripID == 0 {
		http.Error(w, "Invalid trip ID", http.StatusBadRequest)
		return
	}
	trip, err := loadTrip(req.TripID)
	if err == sql.ErrNoRows {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load trip: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// isTeammate reports whether userID participates in the trip.
func isTeammate(tripID, userID int64) (bool, error) {
	var one int
	err := database.DB.QueryRow(
		`SELECT 1 FROM trip_teammates WHERE trip_id = ? AND user_id = ?`,
		tripID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateSupplyStatusHandler confirms a pending supply. Confirmation is
// the only transition; confirmed supplies stay confirmed.
func UpdateSupplyStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateSupplyStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Status != "confirmed" {
		http.Error(w, "Supplies can only move to confirmed", http.StatusBadRequest)
		return
	}

	member, err := isTeammate(req.TripID, userID)
	if err != nil {
		http.Error(w, "Failed to check trip membership: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "You are not part of this trip", http.StatusForbidden)
		return
	}

	res, err := database.DB.Exec(
		`UPDATE trip_supplies SET status = 'confirmed'
		 WHERE id = ? AND trip_id = ? AND status = 'pending'`,
		req.SupplyID, req.TripID)
	if err != nil {
		http.Error(w, "Failed to update supply: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "Supply not found or already confirmed", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

// AddSupplyHandler appends a supply entry to a trip.
func AddSupplyHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.AddSupplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Supply name is required", http.StatusBadRequest)
		return
	}

	member, err := isTeammate(req.TripID, userID)
	if err != nil {
		http.Error(w, "Failed to check trip membership: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "You are not part of this trip", http.StatusForbidden)
		return
	}

	res, err := database.DB.Exec(
		`INSERT INTO trip_supplies (trip_id, name, assigned) VALUES (?, ?, ?)`,
		req.TripID, req.Name, req.Assigned)
	if err != nil {
		http.Error(w, "Failed to add supply: "+err.Error(), http.StatusInternalServerError)
		return
	}
	supplyID, _ := res.LastInsertId()
	writeJSON(w, http.StatusCreated, models.TripSupplyResponse{
		ID:       supplyID,
		Name:     req.Name,
		Assigned: req.Assigned,
		Status:   "pending",
	})
}

// AddActivityHandler appends an itinerary entry to a trip.
func AddActivityHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.AddActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Activity name is required", http.StatusBadRequest)
		return
	}

	member, err := isTeammate(req.TripID, userID)
	if err != nil {
		http.Error(w, "Failed to check trip membership: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !member {
		http.Error(w, "You are not part of this trip", http.StatusForbidden)
		return
	}

	res, err := database.DB.Exec(
		`INSERT INTO trip_activities (trip_id, name, time, location) VALUES (?, ?, ?, ?)`,
		req.TripID, req.Name, req.Time, req.Location)
	if err != nil {
		http.Error(w, "Failed to add activity: "+err.Error(), http.StatusInternalServerError)
		return
	}
	activityID, _ := res.LastInsertId()
	writeJSON(w, http.StatusCreated, models.TripActivityResponse{
		ID:       activityID,
		Name:     req.Name,
		Time:     req.Time,
		Location: req.Location,
	})
}
