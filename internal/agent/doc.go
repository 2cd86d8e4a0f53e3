// Package agent delegates task planning to an external agent crew.
//
// The crew is a black box reached either over HTTP (a crew deployment that
// accepts {"inputs": {...}} and answers with a result) or by running a local
// command. In both cases the crew receives the user's request under the
// "topic" input and, when configured, the contents of a preferences file
// under "preferences".
//
// A command delegate never shares stdout with its parent: the child's stdout
// is captured as the result and its stderr is forwarded line by line to the
// logger, so a crew that prints progress cannot corrupt the MCP stdio stream.
package agent
