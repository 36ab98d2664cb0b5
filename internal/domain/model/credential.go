package model

import "time"

// Credential holds the stored secrets and endpoint configuration for one
// destination instance. One row exists per publish task; which fields are
// populated depends on the destination kind:
//
//   - netvote: APIKey (registry/pinning key), Network; SubmitKey and
//     RemoteFormID are written once by the registration phase.
//   - redcap: APIKey (API token), Endpoint. APIKey is the only field that
//     is mutable after creation, and only through operator key rotation.
//   - json_server: APIKey (auth key header value), Endpoint.
//   - worksheet: APIKey, Endpoint; RemoteFormID holds the worksheet id
//     created during setup.
type Credential struct {
	URI          string
	Kind         DestinationKind
	OwnerEmail   string
	APIKey       string
	SubmitKey    string
	RemoteFormID string
	Network      Network
	Endpoint     string
	UpdatedAt    time.Time
}
