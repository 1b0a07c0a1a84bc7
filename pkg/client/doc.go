// Package client is the Go SDK for the resume-tailor service.
//
// It provides two building blocks and a high-level API client on top of
// them:
//
//   - [Gateway]: attaches bearer credentials to outbound requests and
//     transparently recovers from an expired access token with a
//     single-flight refresh. Concurrent 401s share one refresh call.
//   - [StatusPoller]: tracks an asynchronous resume-generation job until
//     it reaches a terminal state, with capped linear backoff and
//     cooperative cancellation.
//
// Most callers only need [New] and the methods on [Client].
package client
