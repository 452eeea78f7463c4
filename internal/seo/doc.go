// Package seo builds per-page metadata (title, description, canonical, Open
// Graph, Twitter card, hreflang alternates), schema.org JSON-LD objects and
// breadcrumb trails for the generated site. Everything here is pure string
// and map construction driven by the [Site] configuration section.
package seo
