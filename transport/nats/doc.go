// Package nats publishes completed turns to a NATS server so that other
// processes (replays, analytics, spectators) can follow games without polling.
//
// Every turn is published as a JSON TurnMessage on the subject
// {prefix}.session.{id}.turn. Subscribers can use wildcards such as
// cubeblast.session.*.turn to follow every session.
package nats
