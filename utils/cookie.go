package utils

import "net/url"

// EncodeCityCookie turns a city display name into a user-city cookie value
func EncodeCityCookie(name string) string {
	return url.QueryEscape(name)
}

// DecodeCityCookie reverses EncodeCityCookie; an undecodable value is returned as is
func DecodeCityCookie(raw string) string {
	name, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return name
}
