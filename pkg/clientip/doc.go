// Package clientip resolves the address of the caller behind reverse proxies
// and carries it through the request context so that access logs can record
// who spent a quota.
package clientip
