package cancellation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CancelledSession is the immutable trace left behind when a session is
// removed from the live ledger. Display fields are frozen at cancellation
// time; only Reason may change afterwards.
type CancelledSession struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OriginalSessionID string             `json:"originalSessionId" bson:"original_session_id"`
	Reason            string             `json:"reason" bson:"reason"`
	CancellingUserID  *string            `json:"cancellingUserId,omitempty" bson:"cancelling_user_id,omitempty"`
	CancelledAt       time.Time          `json:"cancelledAt" bson:"cancelled_at"`
	WorkerName        string             `json:"workerName" bson:"worker_name"`
	WorkerMatricula   string             `json:"workerMatricula" bson:"worker_matricula"`
	PostName          string             `json:"postName" bson:"post_name"`
	OperationCode     string             `json:"operationCode" bson:"operation_code"`
	OperationName     string             `json:"operationName" bson:"operation_name"`
	StartTs           time.Time          `json:"startTs" bson:"start_ts"`
}

// CancelRequest carries the cancel operation parameters.
type CancelRequest struct {
	SessionID        string  `json:"sessionId" binding:"required"`
	Reason           string  `json:"reason"`
	CancellingUserID *string `json:"cancellingUserId,omitempty"`
}

type ListRequest struct {
	Limit  int
	Offset int
	Date   *time.Time
}

type ListResponse struct {
	Cancellations []*CancelledSession `json:"cancellations"`
	TotalCount    int64               `json:"totalCount"`
	Limit         int                 `json:"limit"`
	Offset        int                 `json:"offset"`
}
