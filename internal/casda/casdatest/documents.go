package casdatest

import (
	"fmt"
	"strings"

	"casdaget/internal/uws"
)

// EmptyVOTable is a well-formed query response with no rows.
const EmptyVOTable = `<?xml version="1.0" encoding="UTF-8"?>
<VOTABLE version="1.3" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">
  <RESOURCE type="results">
    <INFO name="QUERY_STATUS" value="OK"/>
    <TABLE>
      <FIELD name="obs_publisher_did" datatype="char" arraysize="*"/>
      <DATA><TABLEDATA></TABLEDATA></DATA>
    </TABLE>
  </RESOURCE>
</VOTABLE>`

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// ResultVOTable builds a single-table query response with the given columns
// and rows.
func ResultVOTable(fields []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<VOTABLE version="1.3" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">` + "\n")
	b.WriteString("  <RESOURCE type=\"results\">\n")
	b.WriteString("    <INFO name=\"QUERY_STATUS\" value=\"OK\"/>\n")
	b.WriteString("    <TABLE>\n")
	for _, f := range fields {
		fmt.Fprintf(&b, "      <FIELD name=%q datatype=\"char\" arraysize=\"*\"/>\n", f)
	}
	b.WriteString("      <DATA><TABLEDATA>\n")
	for _, row := range rows {
		b.WriteString("        <TR>")
		for _, cell := range row {
			fmt.Fprintf(&b, "<TD>%s</TD>", xmlEscaper.Replace(cell))
		}
		b.WriteString("</TR>\n")
	}
	b.WriteString("      </TABLEDATA></DATA>\n")
	b.WriteString("    </TABLE>\n")
	b.WriteString("  </RESOURCE>\n")
	b.WriteString("</VOTABLE>")
	return b.String()
}

// ErrorVOTable builds a query response rejected by the service.
func ErrorVOTable(message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<VOTABLE version="1.3" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">
  <RESOURCE type="results">
    <INFO name="QUERY_STATUS" value="ERROR">%s</INFO>
  </RESOURCE>
</VOTABLE>`, xmlEscaper.Replace(message))
}

// jobXML renders a UWS job document at the given phase. Callers hold the
// lock.
func (s *Server) jobXML(j *fakeJob, phase uws.Phase) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<uws:job xmlns:uws="http://www.ivoa.net/xml/UWS/v1.0" xmlns:xlink="http://www.w3.org/1999/xlink">` + "\n")
	fmt.Fprintf(&b, "  <uws:jobId>%s</uws:jobId>\n", j.id)
	fmt.Fprintf(&b, "  <uws:phase>%s</uws:phase>\n", phase)
	b.WriteString("  <uws:parameters>\n")
	for _, token := range j.tokens {
		fmt.Fprintf(&b, "    <uws:parameter id=\"ID\">%s</uws:parameter>\n", xmlEscaper.Replace(token))
	}
	for key, vals := range j.params {
		for _, v := range vals {
			fmt.Fprintf(&b, "    <uws:parameter id=%q>%s</uws:parameter>\n", key, xmlEscaper.Replace(v))
		}
	}
	b.WriteString("  </uws:parameters>\n")
	b.WriteString("  <uws:results>\n")
	if phase == uws.PhaseCompleted {
		for n, path := range j.results {
			fmt.Fprintf(&b, "    <uws:result id=\"result-%d\" xlink:href=\"%s/%s\"/>\n", n+1, s.hs.URL, path)
		}
	}
	b.WriteString("  </uws:results>\n")
	if phase == uws.PhaseError {
		fmt.Fprintf(&b, "  <uws:errorSummary type=\"fatal\"><uws:message>%s</uws:message></uws:errorSummary>\n",
			xmlEscaper.Replace(s.errorMessage))
	}
	b.WriteString("</uws:job>")
	return b.String()
}

// datalinkXML renders the DataLink document for one product. The
// unauthenticated variant of a ViaAuthLink product carries only the link
// row pointing at the authenticated document.
func (s *Server) datalinkXML(p Product, authenticated bool) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<VOTABLE version="1.2" xmlns="http://www.ivoa.net/xml/VOTable/v1.2">` + "\n")
	b.WriteString("  <RESOURCE type=\"results\">\n")
	b.WriteString("    <TABLE>\n")
	for _, f := range []string{"ID", "access_url", "service_def", "error_message", "description", "authenticated_id_token"} {
		fmt.Fprintf(&b, "      <FIELD name=%q datatype=\"char\" arraysize=\"*\"/>\n", f)
	}
	b.WriteString("      <DATA><TABLEDATA>\n")

	row := func(cells ...string) {
		b.WriteString("        <TR>")
		for _, cell := range cells {
			fmt.Fprintf(&b, "<TD>%s</TD>", xmlEscaper.Replace(cell))
		}
		b.WriteString("</TR>\n")
	}

	if !authenticated {
		authURL := s.hs.URL + "/vo/datalink/links?ID=" + p.ID + "&auth=1"
		row(p.ID, authURL, "", "", "Authenticated Data Link", "")
	} else {
		row(p.ID, s.hs.URL+"/files/"+p.ID+".fits", "", "", "Download file", "")
		if !p.Denied {
			for _, svc := range p.Services {
				row("", "", svc, "", "Cutout or processed data", p.ID+"-token-"+svc)
			}
		}
	}

	b.WriteString("      </TABLEDATA></DATA>\n")
	b.WriteString("    </TABLE>\n")
	b.WriteString("  </RESOURCE>\n")

	if authenticated && !p.Denied {
		for _, svc := range p.Services {
			fmt.Fprintf(&b, "  <RESOURCE type=\"meta\" utype=\"adhoc:service\" ID=%q name=%q>\n", svc, svc)
			fmt.Fprintf(&b, "    <PARAM name=\"accessURL\" datatype=\"char\" arraysize=\"*\" value=%q/>\n",
				s.hs.URL+"/soda/data/async")
			b.WriteString("  </RESOURCE>\n")
		}
	}

	b.WriteString("</VOTABLE>")
	return b.String()
}
