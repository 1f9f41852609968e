package models

import "time"

// CreateProductRequest defines the structure for listing a new product.
type CreateProductRequest struct {
	Title            string   `json:"title"`
	Price            float64  `json:"price"`
	Image            string   `json:"image"`
	AdditionalImages []string `json:"additionalImages"`
	Location         string   `json:"location"`
	Category         string   `json:"category"`
	Description      string   `json:"description"`
	Condition        string   `json:"condition"`
	ListingType      string   `json:"listingType"`
}

// UpdateProductStatusRequest moves a listing between active, sold and
// reserved.
type UpdateProductStatusRequest struct {
	Status string `json:"status"`
}

// ProductResponse defines the structure for a product returned by the API.
type ProductResponse struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	Title            string    `json:"title"`
	Price            float64   `json:"price"`
	Image            string    `json:"image"`
	AdditionalImages []string  `json:"additionalImages"`
	Location         string    `json:"location"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Condition        string    `json:"condition"`
	ListingType      string    `json:"listingType"`
	Views            int       `json:"views"`
	Status           string    `json:"status"`
	LikesCount       int       `json:"likesCount"`
	LikedByMe        bool      `json:"likedByMe"`
	CreatedAt        time.Time `json:"createdAt"`
	SellerName       string    `json:"sellerName"`
	SellerImage      string    `json:"sellerImage"`
}

// ProductLikeResponse is a user who liked a product.
type ProductLikeResponse struct {
	UserID       int64     `json:"userId"`
	FullName     string    `json:"fullName"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}
