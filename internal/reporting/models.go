package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// StatsRequest is scoped to one user. UserID is required.
type StatsRequest struct {
	UserID string    `json:"userId"`
	Range  TimeRange `json:"range"`
}

type CallsSummary struct {
	TotalCalls      int `json:"totalCalls"`
	AnsweredCalls   int `json:"answeredCalls"`
	MissedCalls     int `json:"missedCalls"`
	ForwardedCalls  int `json:"forwardedCalls"`
	InProgressCalls int `json:"inProgressCalls"`
	QueuedCalls     int `json:"queuedCalls"`

	TotalDurationSeconds   int `json:"totalDurationSeconds"`
	AverageDurationSeconds int `json:"averageDurationSeconds"`

	RecordedCalls int     `json:"recordedCalls"`
	TotalCost     float64 `json:"totalCost"`
}

type LeadsSummary struct {
	TotalLeads     int            `json:"totalLeads"`
	QualifiedLeads int            `json:"qualifiedLeads"`
	NotifiedLeads  int            `json:"notifiedLeads"`
	PaymentLinks   int            `json:"paymentLinks"`
	PaidLeads      int            `json:"paidLeads"`
	AverageScore   float64        `json:"averageScore"`
	BySource       map[string]int `json:"bySource"`
	ByIntent       map[string]int `json:"byIntent"`
}

// Conversion follows calls through to qualified leads and payments.
type Conversion struct {
	AnswerRate        float64 `json:"answerRate"`
	LeadRate          float64 `json:"leadRate"`
	QualificationRate float64 `json:"qualificationRate"`
	PaymentRate       float64 `json:"paymentRate"`
}

type Stats struct {
	Range      TimeRange    `json:"range"`
	Calls      CallsSummary `json:"calls"`
	Leads      LeadsSummary `json:"leads"`
	Conversion Conversion   `json:"conversion"`
}
