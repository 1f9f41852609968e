package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

// SignupHandler registers a new account with its profile, hobbies and
// interests, and returns a bearer token so the client is logged in
// right away.
func SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		http.Error(w, "firstName, lastName, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 6 {
		http.Error(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	var exists int
	err := database.DB.QueryRow("SELECT 1 FROM users WHERE email = ?", req.Email).Scan(&exists)
	if err == nil {
		http.Error(w, "Email already in use", http.StatusConflict)
		return
	}
	if err != sql.ErrNoRows {
		http.Error(w, "Failed to check email: "+err.Error(), http.StatusInternalServerError)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	tx, err := database.DB.Begin()
	if err != nil {
		http.Error(w, "Failed to start transaction: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO users (first_name, last_name, email, password_hash) VALUES (?, ?, ?, ?)`,
		req.FirstName, req.LastName, req.Email, string(hash))
	if err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	userID, err := res.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve user ID: "+err.Error(), http.StatusInternalServerError)
		return
	}

	fullName := req.FullName
	if fullName == "" {
		fullName = req.FirstName + " " + req.LastName
	}
	profileRes, err := tx.Exec(
		`INSERT INTO user_profiles (user_id, full_name, profile_image, phone_number, gender)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, fullName, req.ProfilImage, req.PhoneNumber, req.Gender)
	if err != nil {
		http.Error(w, "Failed to create profile: "+err.Error(), http.StatusInternalServerError)
		return
	}
	profileID, err := profileRes.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve profile ID: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := attachTags(tx, profileID, "hobbies", "profile_hobbies", "hobby_id", req.Hobbies); err != nil {
		http.Error(w, "Failed to save hobbies: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := attachTags(tx, profileID, "interests", "profile_interests", "interest_id", req.Interests); err != nil {
		http.Error(w, "Failed to save interests: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, "Failed to commit: "+err.Error(), http.StatusInternalServerError)
		return
	}

	token, err := util.GenerateToken(userID)
	if err != nil {
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	util.Logger.Info("user registered", zap.Int64("userID", userID))
	writeJSON(w, http.StatusCreated, models.LoginResponse{
		Token: token,
		User: models.UserResponse{
			ID:           userID,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			FullName:     fullName,
			ProfileImage: req.ProfilImage,
		},
	})
}

// attachTags upserts tag names into their lookup table and links them
// to the profile.
func attachTags(tx *sql.Tx, profileID int64, lookup, join, fkColumn string, names []string) error {
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO "+lookup+" (name) VALUES (?)", name); err != nil {
			return err
		}
		var tagID int64
		if err := tx.QueryRow(
			"SELECT id FROM "+lookup+" WHERE name = ?", name).Scan(&tagID); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO "+join+" (profile_id, "+fkColumn+") VALUES (?, ?)",
			profileID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// LoginHandler verifies credentials and returns a bearer token.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	var fullName, profileImage sql.NullString
	err := database.DB.QueryRow(
		`SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.active,
		        up.full_name, up.profile_image
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.email = ?`, req.Email).
		Scan(&user.ID, &user.FirstName, &user.LastName, &user.Email,
			&user.PasswordHash, &user.Active, &fullName, &profileImage)
	if err == sql.ErrNoRows {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !user.Active {
		http.Error(w, "Account is disabled", http.StatusForbidden)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := util.GenerateToken(user.ID)
	if err != nil {
		http.Error(w, "Failed to issue token", http.StatusInternalServerError)
		return
	}

	util.Logger.Info("user logged in", zap.Int64("userID", user.ID))
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Token: token,
		User: models.UserResponse{
			ID:           user.ID,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			Email:        user.Email,
			FullName:     fullName.String,
			ProfileImage: profileImage.String,
		},
	})
}

// UpdatePasswordHandler resets the password of the account matching
// the submitted email. The original flow runs before login, so the
// route is public.
func UpdatePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.NewPassword) < 6 {
		http.Error(w, "Password must be at least 6 characters", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	res, err := database.DB.Exec(
		`UPDATE users SET password_hash = ? WHERE email = ?`, string(hash), req.Email)
	if err != nil {
		http.Error(w, "Failed to update password: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "No account with that email", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// GetUserByEmailHandler resolves an account by email. The reset flow
// calls it before login to check the address exists, so the route is
// public; sending the verification code itself is handled outside.
func GetUserByEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}

	var u models.UserResponse
	var fullName, profileImage sql.NullString
	err := database.DB.QueryRow(
		`SELECT u.id, u.first_name, u.last_name, u.email, up.full_name, up.profile_image
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.email = ? AND u.active = TRUE`, req.Email).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &fullName, &profileImage)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"found":   false,
			"message": "email not found",
		})
		return
	}
	if err != nil {
		http.Error(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	u.FullName = fullName.String
	u.ProfileImage = profileImage.String
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"found": true,
		"user":  u,
	})
}

// CurrentUserHandler returns the authenticated user with their profile.
func CurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	user, err := loadUser(userID, true)
	if err == sql.ErrNoRows {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load user: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// loadUser resolves a user row plus display fields. Email is only
// included for the caller's own account.
func loadUser(userID int64, includeEmail bool) (*models.UserResponse, error) {
	var u models.UserResponse
	var email string
	var fullName, profileImage sql.NullString
	err := database.DB.QueryRow(
		`SELECT u.id, u.first_name, u.last_name, u.email, up.full_name, up.profile_image
		 FROM users u
		 LEFT JOIN user_profiles up ON up.user_id = u.id
		 WHERE u.id = ? AND u.active = TRUE`, userID).
		Scan(&u.ID, &u.FirstName, &u.LastName, &email, &fullName, &profileImage)
	if err != nil {
		return nil, err
	}
	if includeEmail {
		u.Email = email
	}
	u.FullName = fullName.String
	u.ProfileImage = profileImage.String
	return &u, nil
}
