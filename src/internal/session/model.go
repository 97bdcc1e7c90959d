package session

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one worker's work interval at a post. Open while EndTs is nil;
// Close is the only mutation, deletion happens only through the cancellation
// archive.
type Session struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PostID         string             `json:"postId" bson:"post_id"`
	WorkerID       string             `json:"workerId" bson:"worker_id"`
	ProductID      string             `json:"productId" bson:"product_id"`
	OperationID    *string            `json:"operationId,omitempty" bson:"operation_id,omitempty"`
	PartID         *string            `json:"partId,omitempty" bson:"part_id,omitempty"`
	StartTs        time.Time          `json:"startTs" bson:"start_ts"`
	EndTs          *time.Time         `json:"endTs,omitempty" bson:"end_ts,omitempty"`
	Open           bool               `json:"open" bson:"open"`
	Quantity       *int               `json:"quantity,omitempty" bson:"quantity,omitempty"`
	ProductionCode *string            `json:"productionCode,omitempty" bson:"production_code,omitempty"`
	Comment        *string            `json:"comment,omitempty" bson:"comment,omitempty"`
	DeviceName     *string            `json:"deviceName,omitempty" bson:"device_name,omitempty"`
}

// DurationMinutes computes the closed interval length. Legacy badge readers
// report wall-clock times, so a negative span means the interval crossed
// midnight and gets a day added.
func DurationMinutes(start, end time.Time) int {
	minutes := int(end.Sub(start).Minutes())
	if minutes < 0 {
		minutes += 24 * 60
	}
	return minutes
}

// OpenRequest carries open_entry parameters. Worker and product may be left
// blank, in which case the post's latest configuration supplies them.
type OpenRequest struct {
	PostID         string  `json:"postId"`
	WorkerID       string  `json:"workerId"`
	ProductID      string  `json:"productId"`
	OperationID    *string `json:"operationId,omitempty"`
	PartID         *string `json:"partId,omitempty"`
	ProductionCode *string `json:"productionCode,omitempty"`
	Comment        *string `json:"comment,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
}

// CloseRequest selects the open session either by id or by (post, worker).
// An explicit id wins over the pair.
type CloseRequest struct {
	SessionID string `json:"sessionId"`
	PostID    string `json:"postId"`
	WorkerID  string `json:"workerId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// CloseResult is the close_exit response payload.
type CloseResult struct {
	Session         *Session `json:"session"`
	DurationMinutes int      `json:"durationMinutes"`
}

// ListRequest pages through a day's sessions.
type ListRequest struct {
	Date  time.Time
	Page  int
	Limit int
}

type ListResponse struct {
	Sessions   []*Session `json:"sessions"`
	TotalCount int64      `json:"totalCount"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalPages int        `json:"totalPages"`
}
