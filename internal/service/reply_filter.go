package service

import "strings"

// ReplyFilter post-processes a raw oracle reply before it enters a transcript.
type ReplyFilter interface {
	Filter(raw string) string
}

// ReplyFilterFunc adapts a function to ReplyFilter.
type ReplyFilterFunc func(raw string) string

func (f ReplyFilterFunc) Filter(raw string) string { return f(raw) }

const cannedTrigger = "great to see"

// CannedFollowUpFilter replaces any reply containing "great to see" (in any
// case) with CannedFollowUp. Every other reply passes through verbatim.
var CannedFollowUpFilter ReplyFilter = ReplyFilterFunc(func(raw string) string {
	if strings.Contains(strings.ToLower(raw), cannedTrigger) {
		return CannedFollowUp
	}
	return raw
})

// PassthroughFilter leaves replies untouched.
var PassthroughFilter ReplyFilter = ReplyFilterFunc(func(raw string) string { return raw })
