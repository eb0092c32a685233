package models

import "time"

// EquipmentStatus represents whether a piece of equipment is in service
type EquipmentStatus string

const (
	EquipmentStatusActive  EquipmentStatus = "active"
	EquipmentStatusRetired EquipmentStatus = "retired"
)

// Equipment is a registered piece of facility equipment
type Equipment struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Location  string          `json:"location"`
	Status    EquipmentStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// EquipmentCreateRequest represents a request to register equipment
type EquipmentCreateRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// TechnicianStatus represents technician availability
type TechnicianStatus string

const (
	TechnicianStatusAvailable TechnicianStatus = "available"
	TechnicianStatusBusy      TechnicianStatus = "busy"
	TechnicianStatusOff       TechnicianStatus = "off"
)

// Technician is a member of the maintenance staff
type Technician struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email,omitempty"`
	Status    TechnicianStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// TechnicianCreateRequest represents a request to add a technician
type TechnicianCreateRequest struct {
	Name   string           `json:"name"`
	Email  string           `json:"email"`
	Status TechnicianStatus `json:"status,omitempty"`
}
