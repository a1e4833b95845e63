package livebind

import "strings"

// svgCamelCase maps lowercase SVG attribute names to their camelCase spelling (SVG 1.1 and
// SVG 2). Attribute names written after an indirect prefix are lowercased by the HTML
// parser and are restored through this table on SVG elements.
var svgCamelCase = map[string]string{}

func init() {
	for _, name := range []string{
		"attributeName",
		"attributeType",
		"baseFrequency",
		"baseProfile",
		"calcMode",
		"clipPathUnits",
		"contentScriptType",
		"contentStyleType",
		"diffuseConstant",
		"edgeMode",
		"externalResourcesRequired",
		"filterRes",
		"filterUnits",
		"glyphRef",
		"gradientTransform",
		"gradientUnits",
		"hatchContentUnits",
		"hatchUnits",
		"kernelMatrix",
		"kernelUnitLength",
		"keyPoints",
		"keySplines",
		"keyTimes",
		"lengthAdjust",
		"limitingConeAngle",
		"markerHeight",
		"markerUnits",
		"markerWidth",
		"maskContentUnits",
		"maskUnits",
		"numOctaves",
		"pathLength",
		"patternContentUnits",
		"patternTransform",
		"patternUnits",
		"pointsAtX",
		"pointsAtY",
		"pointsAtZ",
		"preserveAlpha",
		"preserveAspectRatio",
		"primitiveUnits",
		"refX",
		"refY",
		"repeatCount",
		"repeatDur",
		"requiredExtensions",
		"requiredFeatures",
		"specularConstant",
		"specularExponent",
		"spreadMethod",
		"startOffset",
		"stdDeviation",
		"stitchTiles",
		"surfaceScale",
		"systemLanguage",
		"tableValues",
		"targetX",
		"targetY",
		"textLength",
		"viewBox",
		"viewTarget",
		"xChannelSelector",
		"yChannelSelector",
		"zoomAndPan",
	} {
		svgCamelCase[strings.ToLower(name)] = name
	}
}
