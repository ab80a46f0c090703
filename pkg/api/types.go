package api

import "encoding/json"

// v0 contains the FauxAPI wire types shared by clients of the plugin.

// Response is the envelope FauxAPI wraps around every action result.
type Response struct {
	CallID  string          `json:"callid"`
	Action  string          `json:"action"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// SystemStatsData is the data member of a system_stats response. Stats is
// kept raw so member order survives decoding.
type SystemStatsData struct {
	Stats json.RawMessage `json:"stats"`
}

type Action string

const ActionSystemStats Action = "system_stats"
