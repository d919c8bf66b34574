package rod

const (
	ArticleHTML = `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
	<nav>Skip me</nav>
	<h1>Hello World</h1>
	<p>First paragraph.</p>
	<script>document.title = document.title;</script>
</body>
</html>`

	DynamicHTML = `<!DOCTYPE html>
<html>
<head><title>Dynamic</title></head>
<body>
	<div id="result"></div>
	<script>
		document.getElementById('result').textContent = 'Rendered by script';
	</script>
</body>
</html>`
)
