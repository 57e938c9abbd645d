package domains

// DeliveryOutcome is the result of attempting to reach one recipient.
type DeliveryOutcome struct {
	DirectSuccess bool
	ChannelSent   bool
	NoMapping     bool
	Err           string
}

// DeliveryStats aggregates delivery outcomes over one reminder cycle.
type DeliveryStats struct {
	DirectSuccess int `json:"direct_success"`
	DirectFailed  int `json:"direct_failed"`
	ChannelSent   int `json:"channel_sent"`
	ChannelFailed int `json:"channel_failed"`
	NoMapping     int `json:"no_mapping"`
}

// Record folds one outcome into the stats. A recipient with no identity
// mapping is never counted as a direct failure; the direct path was not
// attempted for them.
func (s *DeliveryStats) Record(o DeliveryOutcome) {
	switch {
	case o.NoMapping:
		s.NoMapping++
	case o.DirectSuccess:
		s.DirectSuccess++
	default:
		s.DirectFailed++
	}

	if o.ChannelSent {
		s.ChannelSent++
	} else {
		s.ChannelFailed++
	}
}

// CycleReport summarizes one complete fetch-classify-deliver run.
type CycleReport struct {
	UsersProcessed int           `json:"users_processed"`
	DeliveryStats  DeliveryStats `json:"delivery_stats"`
	Errors         []string      `json:"errors,omitempty"`
}
