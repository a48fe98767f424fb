// Package fract applies server-sent envelopes of markup fractions to a
// document.
//
// A server answers a request with an Envelope naming the components of the
// page it wants to change and the new markup for each of them. The client
// resolves every component path against the document, parses the markup
// into detached elements and places them with one of three methods. Named
// actions registered by the page may run before and after each step and can
// veto it.
//
// # Envelopes
//
// An envelope is either a redirect or a set of component updates:
//
//	{"redirect": "/login"}
//
//	{
//	  "preAction": "confirm-leave",
//	  "components": {
//	    "cart": "<div data-fract-id=\"cart\">3 items</div>",
//	    "todos:last": {"fractions": ["<li>a</li>", "<li>b</li>"], "method": "append"}
//	  },
//	  "postAction": {"name": "focus", "params": {"selector": "#new-todo"}}
//	}
//
// Components are applied in the order their keys appear on the wire. Each
// value is one of three shapes, decoded once into the Update tagged union:
//   - a markup string (UpdateMarkup)
//   - a list of markup strings (UpdateList)
//   - a record with fractions, method and component actions (UpdateRecord)
//
// Envelopes travel as JSON by default; clients that send
// Accept: application/msgpack get MessagePack with the same keys.
//
// # Component paths
//
// A path is a colon separated chain of component identities, outermost
// first. "page:list" matches elements carrying data-fract-id="list" nested
// anywhere below an element carrying data-fract-id="page". When a path
// matches several elements only the first is used; when it matches none the
// component is skipped silently.
//
// # Methods
//
//   - replace (default): swap the target for exactly one new element
//   - prepend: insert the new elements, in order, before the target
//   - append: insert the new elements, in order, after the target
//
// Unknown method names leave the component untouched. Replace with more than
// one fraction is reported as ErrMultipleFractions and the target is left in
// place.
//
// # Actions
//
// Responses never carry code. They name actions the page registered up
// front, and the applier calls them by name:
//
//	actions := fract.NewActions().
//	    Register("confirm-leave", func(ctx context.Context, call fract.ActionCall) (fract.Verdict, error) {
//	        if !userConfirms() {
//	            return fract.Abort, nil
//	        }
//	        return fract.Proceed, nil
//	    })
//
// A pre action answering Abort vetoes the step it guards: the whole envelope
// at the top level, a single component otherwise. Unregistered names fail
// with ErrUnknownAction.
//
// # Applying
//
// The core works against the small Document interface, so the same
// algorithm drives an in-memory tree (lib/htmldoc) and a live browser page
// (lib/browser):
//
//	doc, _ := htmldoc.ParseString(page)
//	applier := fract.NewApplier[*html.Node](doc,
//	    fract.WithActions(actions),
//	    fract.WithLogger(logger),
//	)
//	outcome, err := applier.Apply(ctx, env)
//
// Components are isolated from each other: a failure in one is logged,
// returned as part of the joined error and never stops its siblings.
//
// # Transport
//
// Client sends requests and applies the envelopes that come back:
//
//	client := fract.NewClient(applier, fract.WithBaseURL("https://shop.example"))
//	reply, err := client.Send(ctx, "/cart/add?id=3", nil)
//	reply, err = client.SendForm(ctx, form, nil, submitButton)
//
// Transport failures are returned as errors. A non-2xx status is logged and
// surfaces through Reply.OK rather than as an error.
//
// # Responding
//
// On the server, Response builds envelopes from templ components:
//
//	func addTodo(w http.ResponseWriter, r *http.Request) {
//	    todo := store.Add(r.FormValue("title"))
//	    fract.NewResponse().
//	        Append("todos:last", todoRow(todo)).
//	        Flash(fract.FlashSuccess, "Added").
//	        Write(w, r)
//	}
//
// Envelopes can be signed with a shared key (see lib/codec.Signer); clients
// configured WithVerifier refuse unsigned or tampered bodies.
//
// # Testing
//
// The fracttest package applies envelopes to HTML strings and records
// actions and logs, for assertions without a browser.
package fract
