package health

type Input struct{}

type Output struct {
	Body Response
}

type Response struct {
	Status string `json:"status" example:"OK" doc:"Health status of the local service"`
	Online bool   `json:"online" doc:"Whether the sync server was reachable at the last probe"`
}
