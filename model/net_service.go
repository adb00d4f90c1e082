package model

// NetService is a per-connection protocol flow.
type NetService interface {
	Read() (*Request, error)
	Execute()
}
