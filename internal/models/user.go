package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleAdmin      = "admin"
	RoleVendor     = "vendor"
	RoleTaxiDriver = "taxi_driver"
	RolePassenger  = "passenger"
)

// UserProfile carries the contact details shared by every role.
type UserProfile struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Phone     string `bson:"phone" json:"phone"`
	Avatar    string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// FullName joins first and last name for display fallbacks.
func (p UserProfile) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ShopLocation is where a vendor's shop sits.
type ShopLocation struct {
	Address     string      `bson:"address,omitempty" json:"address,omitempty"`
	Coordinates Coordinates `bson:"coordinates" json:"coordinates"`
}

// VendorInfo is the vendor-specific embedded profile.
type VendorInfo struct {
	ShopName     string       `bson:"shopName,omitempty" json:"shopName,omitempty"`
	ShopLocation ShopLocation `bson:"shopLocation" json:"shopLocation"`
	TaxNumber    string       `bson:"taxNumber,omitempty" json:"taxNumber,omitempty"`
	Verified     bool         `bson:"verified" json:"verified"`
}

// TaxiDriverInfo is the driver-specific embedded profile.
type TaxiDriverInfo struct {
	LicenseNumber   string      `bson:"licenseNumber,omitempty" json:"licenseNumber,omitempty"`
	VehicleType     string      `bson:"vehicleType,omitempty" json:"vehicleType,omitempty"`
	VehiclePlate    string      `bson:"vehiclePlate,omitempty" json:"vehiclePlate,omitempty"`
	Available       bool        `bson:"available" json:"available"`
	CurrentLocation Coordinates `bson:"currentLocation" json:"currentLocation"`
}

// User is a polymorphic actor; the role decides which embedded profile applies.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email          string             `bson:"email" json:"email"`
	Role           string             `bson:"role" json:"role"`
	Profile        UserProfile        `bson:"profile" json:"profile"`
	VendorInfo     VendorInfo         `bson:"vendorInfo,omitempty" json:"vendorInfo,omitempty"`
	TaxiDriverInfo TaxiDriverInfo     `bson:"taxiDriverInfo,omitempty" json:"taxiDriverInfo,omitempty"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	LastLogin      *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}
