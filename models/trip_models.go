package models

import "time"

// CreateTripRequest defines the structure for planning a new trip.
type CreateTripRequest struct {
	Name        string              `json:"name"`
	Location    string              `json:"location"`
	Date        string              `json:"date"`
	Description string              `json:"description"`
	SportType   string              `json:"sportType"`
	Image       string              `json:"image"`
	TeammateIDs []int64             `json:"teammateIds"`
	Supplies    []TripSupplyInput   `json:"supplies"`
	Activities  []TripActivityInput `json:"activities"`
}

// TripSupplyInput is a supply entry as submitted by the client.
type TripSupplyInput struct {
	Name     string `json:"name"`
	Assigned *int64 `json:"assigned"`
}

// TripActivityInput is an itinerary entry as submitted by the client.
type TripActivityInput struct {
	Name     string `json:"name"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// UpdateSupplyStatusRequest confirms a pending supply.
type UpdateSupplyStatusRequest struct {
	TripID   int64  `json:"tripId"`
	SupplyID int64  `json:"supplyId"`
	Status   string `json:"status"`
}

// AddSupplyRequest appends a supply to an existing trip.
type AddSupplyRequest struct {
	TripID   int64  `json:"tripId"`
	Name     string `json:"name"`
	Assigned *int64 `json:"assigned"`
}

// AddActivityRequest appends an itinerary entry to an existing trip.
type AddActivityRequest struct {
	TripID   int64  `json:"tripId"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// TripSupplyResponse is a supply row with its assignee resolved.
type TripSupplyResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Assigned     *int64 `json:"assigned,omitempty"`
	AssignedName string `json:"assignedName,omitempty"`
	Status       string `json:"status"`
}

// TripActivityResponse is a single itinerary entry.
type TripActivityResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Location string `json:"location"`
}

// TripResponse defines the structure for a trip returned by the API.
type TripResponse struct {
	ID          int64                  `json:"id"`
	CreatorID   int64                  `json:"creatorId"`
	Name        string                 `json:"name"`
	Location    string                 `json:"location"`
	Date        string                 `json:"date"`
	Description string                 `json:"description"`
	SportType   string                 `json:"sportType"`
	Image       string                 `json:"image"`
	CreatedAt   time.Time              `json:"createdAt"`
	CreatorName string                 `json:"creatorName"`
	Teammates   []UserResponse         `json:"teammates"`
	Supplies    []TripSupplyResponse   `json:"supplies"`
	Activities  []TripActivityResponse `json:"activities"`
}
