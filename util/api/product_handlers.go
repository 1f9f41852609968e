package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NajehRouin/Seekras-api/database"
	"github.com/NajehRouin/Seekras-api/models"
	"github.com/NajehRouin/Seekras-api/util"
)

var productStatuses = map[string]bool{
	"active":   true,
	"sold":     true,
	"reserved": true,
}

const productSelect = `
	SELECT p.id, p.user_id, p.title, p.price, COALESCE(p.image, ''),
	       COALESCE(p.additional_images, '[]'), COALESCE(p.location, ''),
	       COALESCE(p.category, ''), COALESCE(p.description, ''),
	       COALESCE(p.condition, ''), COALESCE(p.listing_type, ''),
	       p.views, p.status, p.created_at,
	       COALESCE(up.full_name, ''), COALESCE(up.profile_image, ''),
	       (SELECT COUNT(*) FROM product_likes pl WHERE pl.product_id = p.id),
	       EXISTS(SELECT 1 FROM product_likes pl WHERE pl.product_id = p.id AND pl.user_id = ?)
	FROM products p
	LEFT JOIN user_profiles up ON up.user_id = p.user_id`

func scanProduct(scan func(dest ...interface{}) error) (*models.ProductResponse, error) {
	var p models.ProductResponse
	var extra string
	if err := scan(&p.ID, &p.UserID, &p.Title, &p.Price, &p.Image, &extra,
		&p.Location, &p.Category, &p.Description, &p.Condition, &p.ListingType,
		&p.Views, &p.Status, &p.CreatedAt, &p.SellerName, &p.SellerImage,
		&p.LikesCount, &p.LikedByMe); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(extra), &p.AdditionalImages); err != nil {
		p.AdditionalImages = []string{}
	}
	return &p, nil
}

func queryProducts(viewerID int64, where string, args ...interface{}) ([]models.ProductResponse, error) {
	fullArgs := append([]interface{}{viewerID}, args...)
	rows, err := database.DB.Query(
		productSelect+" WHERE "+where+" ORDER BY p.created_at DESC, p.id DESC", fullArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []models.ProductResponse{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func loadProduct(viewerID, productID int64) (*models.ProductResponse, error) {
	row := database.DB.QueryRow(productSelect+" WHERE p.id = ?", viewerID, productID)
	return scanProduct(row.Scan)
}

// CreateProductHandler lists a new product for the caller.
func CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Product title is required", http.StatusBadRequest)
		return
	}
	if req.Price < 0 {
		http.Error(w, "Price cannot be negative", http.StatusBadRequest)
		return
	}
	if req.AdditionalImages == nil {
		req.AdditionalImages = []string{}
	}
	extra, err := json.Marshal(req.AdditionalImages)
	if err != nil {
		http.Error(w, "Invalid additional images", http.StatusBadRequest)
		return
	}

	res, err := database.DB.Exec(
		`INSERT INTO products (user_id, title, price, image, additional_images, location,
		                       category, description, condition, listing_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, req.Title, req.Price, req.Image, string(extra), req.Location,
		req.Category, req.Description, req.Condition, req.ListingType, time.Now().UTC())
	if err != nil {
		http.Error(w, "Failed to create product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	productID, err := res.LastInsertId()
	if err != nil {
		http.Error(w, "Failed to retrieve product ID: "+err.Error(), http.StatusInternalServerError)
		return
	}

	product, err := loadProduct(userID, productID)
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("product listed", zap.Int64("productID", productID), zap.Int64("userID", userID))
	writeJSON(w, http.StatusCreated, product)
}

// GetProductsHandler lists every product that is not sold.
func GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	products, err := queryProducts(userID, `p.status != 'sold'`)
	if err != nil {
		http.Error(w, "Failed to load products: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProductHandler returns one product.
func GetProductHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	product, err := loadProduct(userID, productID)
	if err == sql.ErrNoRows {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProductHandler edits a listing. Only its seller may do this.
func UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	if !requireSeller(w, productID, userID) {
		return
	}

	var req models.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Product title is required", http.StatusBadRequest)
		return
	}
	if req.Price < 0 {
		http.Error(w, "Price cannot be negative", http.StatusBadRequest)
		return
	}
	if req.AdditionalImages == nil {
		req.AdditionalImages = []string{}
	}
	extra, err := json.Marshal(req.AdditionalImages)
	if err != nil {
		http.Error(w, "Invalid additional images", http.StatusBadRequest)
		return
	}

	if _, err := database.DB.Exec(
		`UPDATE products SET title = ?, price = ?, image = ?, additional_images = ?,
		        location = ?, category = ?, description = ?, condition = ?, listing_type = ?
		 WHERE id = ?`,
		req.Title, req.Price, req.Image, string(extra), req.Location, req.Category,
		req.Description, req.Condition, req.ListingType, productID); err != nil {
		http.Error(w, "Failed to update product: "+err.Error(), http.StatusInternalServerError)
		return
	}

	product, err := loadProduct(userID, productID)
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProductHandler removes a listing and its likes.
func DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	if !requireSeller(w, productID, userID) {
		return
	}

	if _, err := database.DB.Exec(`DELETE FROM products WHERE id = ?`, productID); err != nil {
		http.Error(w, "Failed to delete product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("product removed", zap.Int64("productID", productID))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func requireSeller(w http.ResponseWriter, productID, userID int64) bool {
	var sellerID int64
	err := database.DB.QueryRow(
		`SELECT user_id FROM products WHERE id = ?`, productID).Scan(&sellerID)
	if err == sql.ErrNoRows {
		http.Error(w, "Product not found", http.StatusNotFound)
		return false
	}
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return false
	}
	if sellerID != userID {
		http.Error(w, "You can only change your own listings", http.StatusForbidden)
		return false
	}
	return true
}

// ViewProductHandler bumps a product's view counter.
func ViewProductHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	res, err := database.DB.Exec(
		`UPDATE products SET views = views + 1 WHERE id = ?`, productID)
	if err != nil {
		http.Error(w, "Failed to record view: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	var views int
	if err := database.DB.QueryRow(
		`SELECT views FROM products WHERE id = ?`, productID).Scan(&views); err != nil {
		http.Error(w, "Failed to load views: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"views": views})
}

// LikeProductHandler toggles the caller's like on a product.
func LikeProductHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var sellerID int64
	err = database.DB.QueryRow(
		`SELECT user_id FROM products WHERE id = ?`, productID).Scan(&sellerID)
	if err == sql.ErrNoRows {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}

	res, err := database.DB.Exec(
		`DELETE FROM product_likes WHERE product_id = ? AND user_id = ?`, productID, userID)
	if err != nil {
		http.Error(w, "Failed to toggle like: "+err.Error(), http.StatusInternalServerError)
		return
	}
	removed, _ := res.RowsAffected()
	liked := false
	if removed == 0 {
		if _, err := database.DB.Exec(
			`INSERT INTO product_likes (product_id, user_id) VALUES (?, ?)`,
			productID, userID); err != nil {
			http.Error(w, "Failed to like product: "+err.Error(), http.StatusInternalServerError)
			return
		}
		liked = true
	}

	var likesCount int
	if err := database.DB.QueryRow(
		`SELECT COUNT(*) FROM product_likes WHERE product_id = ?`, productID).Scan(&likesCount); err != nil {
		http.Error(w, "Failed to load counter: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"liked":      liked,
		"likesCount": likesCount,
	})
}

// ListProductLikesHandler lists who liked a product.
func ListProductLikesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUserID(w, r); !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	rows, err := database.DB.Query(
		`SELECT pl.user_id, COALESCE(up.full_name, ''), COALESCE(up.profile_image, ''), pl.created_at
		 FROM product_likes pl
		 LEFT JOIN user_profiles up ON up.user_id = pl.user_id
		 WHERE pl.product_id = ?
		 ORDER BY pl.created_at DESC`, productID)
	if err != nil {
		http.Error(w, "Failed to load likes: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	likes := []models.ProductLikeResponse{}
	for rows.Next() {
		var l models.ProductLikeResponse
		if err := rows.Scan(&l.UserID, &l.FullName, &l.ProfileImage, &l.CreatedAt); err != nil {
			http.Error(w, "Failed to scan like: "+err.Error(), http.StatusInternalServerError)
			return
		}
		likes = append(likes, l)
	}
	writeJSON(w, http.StatusOK, likes)
}

// ProductsByUserHandler lists a user's products.
func ProductsByUserHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	targetID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	products, err := queryProducts(viewerID, `p.user_id = ?`, targetID)
	if err != nil {
		http.Error(w, "Failed to load products: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// ProductsCurrentUserHandler lists the caller's own products.
func ProductsCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	products, err := queryProducts(userID, `p.user_id = ?`, userID)
	if err != nil {
		http.Error(w, "Failed to load products: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// UpdateProductStatusHandler moves a listing between active, sold and
// reserved. Setting the status it already has is rejected so buyers
// see a real transition.
func UpdateProductStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	var req models.UpdateProductStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error reading request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !productStatuses[req.Status] {
		http.Error(w, "Status must be active, sold or reserved", http.StatusBadRequest)
		return
	}

	var sellerID int64
	var current string
	err = database.DB.QueryRow(
		`SELECT user_id, status FROM products WHERE id = ?`, productID).Scan(&sellerID, &current)
	if err == sql.ErrNoRows {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load product: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if sellerID != userID {
		http.Error(w, "You can only change your own listings", http.StatusForbidden)
		return
	}
	if current == req.Status {
		http.Error(w, "Product already has that status", http.StatusBadRequest)
		return
	}

	if _, err := database.DB.Exec(
		`UPDATE products SET status = ? WHERE id = ?`, req.Status, productID); err != nil {
		http.Error(w, "Failed to update status: "+err.Error(), http.StatusInternalServerError)
		return
	}
	util.Logger.Info("product status changed",
		zap.Int64("productID", productID), zap.String("status", req.Status))
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}
