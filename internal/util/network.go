package util

// NormaliseBaseURL ensures the base URL ends without a trailing slash
func NormaliseBaseURL(baseURL string) string {
	for len(baseURL) > 1 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return baseURL
}
