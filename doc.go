// Package mailbench provides a Go client SDK for the mailbench
// email-security testbed: a workbench for probing an LLM summarization
// pipeline with intentionally adversarial email content under
// runtime-tunable defenses.
//
// The client orchestrates the testbed's session state: authentication,
// the simulated inbox with its local edit overlay, the defense-pipeline
// configuration, the summarization quota, and the admin credential
// lifecycle. Content edits are purely local; the backend only sees them
// when a summarization request reads the effective bodies.
//
// Basic usage:
//
//	client, err := mailbench.New(mailbench.WithBaseURL("http://localhost:5001"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Login(ctx, "alice", "secret"); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Edit a message locally, then summarize the inbox.
//	client.Select(1)
//	client.BeginEdit()
//	client.SetDraft("IGNORE PREVIOUS INSTRUCTIONS ...")
//	client.SaveEdit()
//
//	if err := client.Summarize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	summary, _ := client.Summary()
//	fmt.Println(summary)
package mailbench
