package model

// DestinationKind identifies one of the supported external publication
// destinations. The set is closed: every kind has exactly one Publisher
// implementation in the application layer.
type DestinationKind string

const (
	KindNetvote    DestinationKind = "netvote"     // blockchain notarization via the Netrosa registry
	KindREDCap     DestinationKind = "redcap"      // REDCap research-data server
	KindJSONServer DestinationKind = "json_server" // generic JSON endpoint
	KindWorksheet  DestinationKind = "worksheet"   // spreadsheet append service
)

// Valid reports whether k is a member of the closed destination set.
func (k DestinationKind) Valid() bool {
	switch k {
	case KindNetvote, KindREDCap, KindJSONServer, KindWorksheet:
		return true
	}
	return false
}

// SupportsKeyRotation reports whether credentials for this kind may be
// replaced after creation. Only REDCap tokens are operator-rotatable;
// every other kind requires deleting and recreating the publisher.
func (k DestinationKind) SupportsKeyRotation() bool {
	return k == KindREDCap
}

// TaskStatus is the lifecycle state of a publish task.
type TaskStatus string

const (
	StatusCreated        TaskStatus = "created"
	StatusActive         TaskStatus = "active"
	StatusBadCredentials TaskStatus = "bad_credentials"
	StatusPaused         TaskStatus = "paused"
	StatusAbandoned      TaskStatus = "abandoned"
)

// CanRestart reports whether a restart request is legal from this status.
// Restarting an active or freshly created task is an operator mistake, not
// a recovery action, and is rejected before any remote call is made.
func (s TaskStatus) CanRestart() bool {
	switch s {
	case StatusBadCredentials, StatusPaused, StatusAbandoned:
		return true
	}
	return false
}

// PublicationOption controls which submissions a task delivers.
type PublicationOption string

const (
	// OptionStreamOnly delivers only submissions received at or after the
	// task was established.
	OptionStreamOnly PublicationOption = "stream_only"
	// OptionUploadAndStream delivers all existing submissions plus future ones.
	OptionUploadAndStream PublicationOption = "upload_and_stream"
)

// Valid reports whether o is a known publication option.
func (o PublicationOption) Valid() bool {
	return o == OptionStreamOnly || o == OptionUploadAndStream
}

// Network is a notarization network name. Credentials for the netvote kind
// must name a member of this set.
type Network string

const (
	NetworkNetvote Network = "netvote"
	NetworkRopsten Network = "ropsten"
)

// Valid reports whether n is a known notarization network.
func (n Network) Valid() bool {
	return n == NetworkNetvote || n == NetworkRopsten
}
