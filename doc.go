// Package hxmodal drives the "create account" dialog of a server-rendered
// page: fetch a form fragment into a modal, bind a form session to it, submit
// to the account endpoint and report the outcome.
//
// The page is modelled as a goquery document. Components never mutate it
// from arbitrary goroutines: transports do their I/O in the background and
// post results onto a Scheduler, so every DOM change happens on one thread.
//
// # Components
//
// Four components cooperate, each embedding *Emitter for its signals:
//
//   - Page reacts to the create-account action and wires everything else.
//   - Modal fetches remote markup into the dialog and reports opened/closed.
//   - FormSession binds a UserModel to the form subtree and turns submit and
//     cancel into signals.
//   - RenderNotification and the Notifier implementations display messages.
//
// # Wiring
//
// Build a page from its markup and start the loop:
//
//	loop := hxmodal.NewLoop()
//	page, doc, err := hxmodal.BootstrapMarkup(markup,
//	    []hxmodal.ModalOption{hxmodal.WithScheduler(loop)},
//	    hxmodal.WithOrigin("http://localhost:8080/"),
//	)
//	if err != nil {
//	    return err
//	}
//	go loop.Run(ctx)
//
//	loop.Post(func() {
//	    if err := page.Click(ctx, hxmodal.CreateAccountSelector); err != nil {
//	        slog.Error("create account", "error", err)
//	    }
//	})
//
// Page markup advertises the form URL and the dialog element:
//
//	<api user-create="/accounts/form"></api>
//	<div id="modal-content" class="reveal-modal"></div>
//	<script type="text/template" id="template-notification">
//	  <div class="alert-box">{{ msg }}</div>
//	</script>
//
// The fetched fragment carries the account endpoints and the form:
//
//	<api href-create="/api/users" href-update="/api/users/{id}"></api>
//	<div class="formcontent">
//	  <input name="email"><small class="error" data-field="email"></small>
//	</div>
//
// # Signals
//
// External code observes the flow through the page:
//
//	page.On(hxmodal.EventFormInit, func(args ...any) {
//	    session := args[1].(*hxmodal.FormSession)
//	    session.Fill(map[string]string{"email": "ada@example.com"})
//	    session.Submit(ctx)
//	})
//
// A rejected submission renders field errors into the matching small.error
// elements and leaves the dialog open. A successful one closes the dialog
// and shows the success notification. Closing the dialog destroys the model,
// which tears the session down exactly once.
//
// # Errors
//
// Operations return errors wrapping the package sentinels; use
// IsConfigurationError, IsFetchError and IsValidationError, or errors.Is.
//
// # Testing
//
// StubFetcher, StubSubmitter and RecordingNotifier let tests complete
// requests by hand. Pair them with a Loop and Drain for deterministic
// ordering.
package hxmodal
