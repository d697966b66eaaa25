package render

const stylesheet = `
@page { size: A4; margin: 0; }
body {
    font-family: Arial, sans-serif;
    margin: 40px;
    line-height: 1.6;
    color: #333;
}
h1, h2, h3 {
    color: #2c3e50;
    border-bottom: 1px solid #eee;
    padding-bottom: 10px;
}
code {
    background-color: #f4f4f4;
    padding: 2px 6px;
    border-radius: 3px;
    font-family: Consolas, monospace;
}
pre {
    background-color: #f8f9fa;
    padding: 15px;
    border-radius: 5px;
    overflow-x: auto;
}
blockquote {
    border-left: 4px solid #3498db;
    margin-left: 0;
    padding-left: 20px;
    color: #666;
}
table {
    border-collapse: collapse;
    width: 100%;
    margin: 15px 0;
}
th, td {
    border: 1px solid #ddd;
    padding: 8px 12px;
    text-align: left;
}
th {
    background-color: #f2f2f2;
}
@media print {
    h1, h2, h3 { page-break-after: avoid; }
    section, table, pre, blockquote { page-break-inside: avoid; }
}
`

// Document wraps an HTML fragment in the résumé page template.
func Document(body string) string {
	return "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n<style>" +
		stylesheet + "</style>\n</head>\n<body>\n" + body + "</body>\n</html>\n"
}
