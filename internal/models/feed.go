package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedStatus is the review state of a submitted feed.
type FeedStatus string

const (
	FeedStatusPending  FeedStatus = "Pending"
	FeedStatusApproved FeedStatus = "Approved"
	FeedStatusRejected FeedStatus = "Rejected"
)

// CanTransition reports whether an admin decision may move a feed from s to next.
// Approval happens once per cycle. Rejected is terminal for a cycle; a new
// submission starts the next one. An approved feed may still be rejected,
// which takes it out of the refresh schedule.
func (s FeedStatus) CanTransition(next FeedStatus) bool {
	switch s {
	case FeedStatusPending:
		return next == FeedStatusApproved || next == FeedStatusRejected
	case FeedStatusApproved:
		return next == FeedStatusRejected
	default:
		return false
	}
}

// XMLProperty is a listing extracted from a feed. ID is set only when the
// record matched a stored property, which makes it an update.
type XMLProperty struct {
	ID              *primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	PropertyDetails `bson:",inline"`
	IsEligible      bool                `bson:"isEligible" json:"isEligible"`
	CreatedBy       *primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
}

// NewXMLProperty returns an eligible property with the given details.
func NewXMLProperty(details PropertyDetails) XMLProperty {
	return XMLProperty{PropertyDetails: details, IsEligible: true}
}

// Clone returns a deep copy.
func (p XMLProperty) Clone() XMLProperty {
	c := p
	c.PropertyDetails = p.PropertyDetails.Clone()
	if p.ID != nil {
		id := *p.ID
		c.ID = &id
	}
	if p.CreatedBy != nil {
		by := *p.CreatedBy
		c.CreatedBy = &by
	}
	return c
}

// XMLAgent is a feed contact together with the listings it owns.
type XMLAgent struct {
	ID             *primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name           string              `bson:"name" json:"name"`
	Phone          string              `bson:"phone" json:"phone"`
	Email          string              `bson:"email" json:"email"`
	Photo          string              `bson:"photo,omitempty" json:"photo,omitempty"`
	Properties     []XMLProperty       `bson:"properties" json:"properties"`
	ApprovalIssues []string            `bson:"approvalIssues,omitempty" json:"approvalIssues,omitempty"`
}

// Clone returns a deep copy.
func (a XMLAgent) Clone() XMLAgent {
	c := a
	if a.ID != nil {
		id := *a.ID
		c.ID = &id
	}
	c.ApprovalIssues = cloneStrings(a.ApprovalIssues)
	if a.Properties != nil {
		c.Properties = make([]XMLProperty, len(a.Properties))
		for i, p := range a.Properties {
			c.Properties[i] = p.Clone()
		}
	}
	return c
}

// ReferenceNumbers lists the feed reference numbers of the agent's properties in order.
func (a XMLAgent) ReferenceNumbers() []string {
	refs := make([]string, 0, len(a.Properties))
	for _, p := range a.Properties {
		refs = append(refs, p.ReferenceNumber())
	}
	return refs
}

// CloneAgents deep-copies a list of agents.
func CloneAgents(agents []XMLAgent) []XMLAgent {
	if agents == nil {
		return nil
	}
	out := make([]XMLAgent, len(agents))
	for i, a := range agents {
		out[i] = a.Clone()
	}
	return out
}

// Warnings maps a property reference number to its messages, newest first.
type Warnings map[string][]string

// Clone returns a deep copy; a nil map clones to an empty one.
func (w Warnings) Clone() Warnings {
	out := make(Warnings, len(w))
	for ref, msgs := range w {
		out[ref] = cloneStrings(msgs)
	}
	return out
}

// Prepend puts msg in front of the messages already recorded for ref.
func (w Warnings) Prepend(ref, msg string) {
	w[ref] = append([]string{msg}, w[ref]...)
}

// Accumulate returns newer's messages placed before older's, per reference number.
func Accumulate(newer, older Warnings) Warnings {
	out := older.Clone()
	for ref, msgs := range newer {
		out[ref] = append(cloneStrings(msgs), out[ref]...)
	}
	return out
}

// PropertiesXMLEntity tracks one creator's feed URL through review and refreshes.
type PropertiesXMLEntity struct {
	Base                     `bson:",inline"`
	URL                      string             `bson:"url" json:"url"`
	Creator                  primitive.ObjectID `bson:"creator" json:"creator"`
	Status                   FeedStatus         `bson:"status" json:"status"`
	LastUpdatedAt            *time.Time         `bson:"lastUpdatedAt,omitempty" json:"lastUpdatedAt,omitempty"`
	OriginalParsedProperties []XMLAgent         `bson:"originalParsedProperties" json:"originalParsedProperties"`
	TempProperties           []XMLAgent         `bson:"tempProperties" json:"tempProperties"`
	Warnings                 Warnings           `bson:"warnings" json:"warnings"`
	XMLErrors                []string           `bson:"xmlErrors" json:"xmlErrors"`
	RejectionReason          string             `bson:"rejectionReason,omitempty" json:"rejectionReason,omitempty"`
	CreatedAt                time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt                time.Time          `bson:"updatedAt" json:"updatedAt"`
}
