// Package api is the REST surface of calendar-mcp.
//
// Endpoints:
//
//	GET  /health       static liveness payload
//	POST /run          {"input_task": "..."} runs the agent delegate
//	POST /mcp/invoke   minimal invoke envelope around the agent delegate
//
// /mcp/invoke accepts {"input": "..."}, {"inputs": {...}} or a bare JSON
// string. With a map, the first present key of topic, input_task, task and
// text is used; otherwise the whole map is passed on as JSON.
package api
