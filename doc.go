// Package convoengine provides a multi-tenant, multi-channel
// conversation orchestrator for customer-service AI.
//
// It wires an FSM-driven conversation lifecycle, a parallel AI-analysis
// pipeline (intent, sentiment, emotion, entity extraction), a
// capability-addressed AI provider registry with fallback and circuit
// breaking, a layered context store, an emotion/intent-driven response
// adaptation layer, a bi-directional CRM synchroniser, and an analytics
// collector behind one facade package, `convo`.
//
// # Using as a Go library
//
//	import "github.com/nordeim/convoengine/convo"
//
// An `convo.Engine` is built from its collaborators with `convo.New`; see
// `cmd/convoengine` for a complete wiring example (config loading,
// provider registration, and an interactive chat loop).
//
// # Architecture
//
//	User message → convo.Engine.PostUserMessage → pipeline.Pipeline
//	  (parallel capability calls via orchestrator.Orchestrator →
//	   providers.Registry → providers.Provider) → fsm.Machine transition
//	  → convocontext.Store (layered session/user context) → response
//
// # Status
//
// convoengine is under active development; APIs may change.
package convoengine
