package catalog

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Worker is a production operator identified by a permanent badge.
type Worker struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Matricula string             `json:"matricula" bson:"matricula"`
	BadgeCode string             `json:"badgeCode" bson:"badge_code"`
	Active    bool               `json:"active" bson:"active"`
}

// TempBadge is a time-boxed badge overlay. While not expired it shadows the
// permanent badge directory for its code.
type TempBadge struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	BadgeCode string             `json:"badgeCode" bson:"badge_code"`
	WorkerID  string             `json:"workerId" bson:"worker_id"`
	ExpiresAt time.Time          `json:"expiresAt" bson:"expires_at"`
}

// Post is a physical workstation.
type Post struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	SubLineID string             `json:"subLineId" bson:"sub_line_id"`
	Order     int                `json:"order" bson:"order"`
}

// SubLine groups posts under a production line.
type SubLine struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name   string             `json:"name" bson:"name"`
	LineID string             `json:"lineId" bson:"line_id"`
	Order  int                `json:"order" bson:"order"`
}

type Product struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code string             `json:"code" bson:"code"`
	Name string             `json:"name" bson:"name"`
}

type Operation struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code string             `json:"code" bson:"code"`
	Name string             `json:"name" bson:"name"`
}

type Part struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Code string             `json:"code" bson:"code"`
	Name string             `json:"name" bson:"name"`
}

// PostConfig is a per-post default assignment. The newest config with a
// product wins when a badge scan has to resolve post and product on its own.
type PostConfig struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PostID    string             `json:"postId" bson:"post_id"`
	WorkerID  *string            `json:"workerId,omitempty" bson:"worker_id,omitempty"`
	ProductID *string            `json:"productId,omitempty" bson:"product_id,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Device is a registered badge reader attached to a post. Only its display
// name is consumed here.
type Device struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name   string             `json:"name" bson:"name"`
	PostID string             `json:"postId" bson:"post_id"`
}
