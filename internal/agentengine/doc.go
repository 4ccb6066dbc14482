// Package agentengine is the relay's client for a remote Vertex AI Agent
// Engine resource.
//
// The engine is treated as an opaque streaming RPC: the relay creates a
// session, streams one query against it, and deletes the session. Streamed
// responses arrive as newline-delimited JSON events whose content parts
// carry text fragments; everything else in an event is ignored.
//
//	client, _ := agentengine.NewDefaultClient(ctx, location, resource)
//	sess, _ := client.CreateSession(ctx, userID)
//	stream, _ := client.StreamQuery(ctx, userID, sess.ID, input)
//	for {
//	    ev, err := stream.Recv()
//	    if err != nil { break }
//	    _ = ev.Text()
//	}
//	stream.Close()
//	client.DeleteSession(ctx, sess.ID)
package agentengine
