// Package template provides a Handlebars template engine for the calculator's
// text and page output.
//
// Banners, plot titles and legend labels are rendered through it, as is the
// HTML calculator page. Compiled templates are cached by source.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	result, err := engine.Render("Result: {{{result}}}", map[string]interface{}{
//	    "result": "2*x + 3",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Output: Result: 2*x + 3
//
// Built-in helpers:
//   - trim - Trim whitespace from string
//   - eq - Equality comparison
//   - ne - Inequality comparison
//   - selected - " selected" when both strings match, for <option> tags
//   - number - Shortest decimal form of a float
//   - join - Join string elements with separator
//
// Example with helpers:
//
//	<option{{selected preset current}}>{{preset}}</option>
//	{{#if (eq action "plot")}}...{{/if}}
//	{{number xMin}}                      # "-10"
package template
