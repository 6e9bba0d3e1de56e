// Package api serves the calculator page and its JSON API over gin.
//
// Routes:
//
//	GET  /                    calculator page (expression, preset, x_min, x_max, action)
//	POST /api/v1/calculate    {"expression": "x + x"}
//	POST /api/v1/plot         {"expression": "sin(x)", "x_min": -5, "x_max": 5, "format": "svg"}
//	GET  /api/v1/plot/image   raw image for the same query parameters
//	GET  /api/v1/presets      preset expressions and slider bounds
//
// Calculator failures answer 422 with {"error", "kind"}; malformed requests
// and expressions over MAX_EXPRESSION_LENGTH answer 400.
package api
