package instrumentation

// TODO: Integrate with metrics server

type HttpClientMetricKey struct {
	Endpoint  string
	ErrorCode string
}

type HttpClientExchangeEvent struct {
	Key HttpClientMetricKey
}

func PushHttpClientExchange(endpoint string, errorCode string) {
	MS.InputChan <- HttpClientExchangeEvent{Key: HttpClientMetricKey{Endpoint: endpoint, ErrorCode: errorCode}}
}

type HttpHandlerMetricKey struct {
	Endpoint  string
	ErrorCode string
}

type HttpHandlerExchangeEvent struct {
	Key HttpHandlerMetricKey
}

func PushHttpHandlerExchange(endpoint string, errorCode string) {
	MS.InputChan <- HttpHandlerExchangeEvent{Key: HttpHandlerMetricKey{Endpoint: endpoint, ErrorCode: errorCode}}
}

type HttpRouterMetricKey struct {
	Endpoint  string
	ErrorCode string
}

type HttpRouterExchangeEvent struct {
	Key HttpRouterMetricKey
}

func PushHttpRouterExchange(errorCode string, endpoint string) {
	MS.InputChan <- HttpRouterExchangeEvent{Key: HttpRouterMetricKey{Endpoint: endpoint, ErrorCode: errorCode}}
}
