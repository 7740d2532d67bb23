package models

import (
	"time"

	"gorm.io/gorm"
)

// Servicio represents a service offered by companies (desagote, destapaciones, ...)
// DB: servicios
type Servicio struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Nombre    string    `gorm:"column:nombre;size:100;not null;uniqueIndex:servicios_nombre_key" json:"nombre"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`

	// Relations
	Empresas []Empresa `gorm:"many2many:empresa_servicios;" json:"empresas,omitempty"`
}

func (Servicio) TableName() string {
	return "servicios"
}

// Empresa represents a listed company
// DB: empresas
type Empresa struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	Nombre     string   `gorm:"column:nombre;size:255;not null" json:"nombre"`
	Direccion  *string  `gorm:"column:direccion;type:text" json:"direccion,omitempty"`
	Provincia  *string  `gorm:"column:provincia;size:100;index:idx_empresa_provincia" json:"provincia,omitempty"`
	Localidad  *string  `gorm:"column:localidad;size:100;index:idx_empresa_localidad" json:"localidad,omitempty"`
	Telefono   *string  `gorm:"column:telefono;size:50" json:"telefono,omitempty"`
	Email      *string  `gorm:"column:email;size:255" json:"email,omitempty"`
	Web        *string  `gorm:"column:web;type:text" json:"web,omitempty"`
	ImgURL     *string  `gorm:"column:img_url;type:text" json:"img_url,omitempty"`
	Lat        *float64 `gorm:"column:lat;type:double precision" json:"lat,omitempty"`
	Lng        *float64 `gorm:"column:lng;type:double precision" json:"lng,omitempty"`
	Destacada  bool     `gorm:"column:destacada;not null;default:false;index:idx_empresa_destacada" json:"destacada"`
	Habilitada bool     `gorm:"column:habilitada;not null;default:true;index:idx_empresa_habilitada" json:"habilitada"`

	CreatedAt time.Time      `gorm:"column:created_at;not null;index:idx_empresa_created,sort:desc" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index:idx_empresa_deleted" json:"deleted_at,omitempty"`

	// Relations
	Servicios []Servicio `gorm:"many2many:empresa_servicios;" json:"servicios,omitempty"`
}

func (Empresa) TableName() string {
	return "empresas"
}

// HasCoordinates reports whether both lat and lng are set
func (e *Empresa) HasCoordinates() bool {
	return e.Lat != nil && e.Lng != nil
}
