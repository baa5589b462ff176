// Package live implements the pipeline surface against a real browser page.
// The locate/trigger/wait/extract semantics match the in-memory document
// surface; here they run as scripts evaluated in the page itself, which is
// the only place shadow roots of a third-party site are reachable.
package live

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"

	"introscan/internal/browser"
	"introscan/internal/dom"
	"introscan/internal/page"
)

// findScript locates an element by id across shadow roots, depth-first with
// light-tree priority, the same order the in-memory locator uses.
const findScript = `
function introscanFind(root, id) {
	const walker = document.createTreeWalker(root, NodeFilter.SHOW_ELEMENT);
	for (let node = walker.currentNode; node; node = walker.nextNode()) {
		if (node.id === id) return node;
	}
	for (const host of root.querySelectorAll('*')) {
		if (host.shadowRoot) {
			const found = introscanFind(host.shadowRoot, id);
			if (found) return found;
		}
	}
	return null;
}`

// Driver drives one live page. It is created per scan and closed with it.
type Driver struct {
	browser   *browser.Browser
	tab       *rod.Page
	selectors page.Selectors
}

// NewDriver opens a page on the given browser.
func NewDriver(b *browser.Browser, sel page.Selectors) (*Driver, error) {
	tab, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	return &Driver{browser: b, tab: tab, selectors: sel}, nil
}

// Navigate loads the target page and waits for the load event, the page's
// content-ready moment that starts the pipeline.
func (d *Driver) Navigate(url string, timeout time.Duration) error {
	if err := d.tab.Timeout(timeout).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if err := d.tab.Timeout(timeout).WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}
	return nil
}

// Close closes the page; the browser itself is owned by the caller.
func (d *Driver) Close() {
	if d.tab != nil {
		d.tab.Close()
	}
}

func (d *Driver) Location() string {
	info, err := d.tab.Info()
	if err != nil {
		log.Printf("[live] page info unavailable: %v", err)
		return ""
	}
	return info.URL
}

// TriggerExpand polls the page for a clickable element whose trimmed text
// equals matchText exactly and clicks the first match once.
func (d *Driver) TriggerExpand(matchText string, interval time.Duration, maxAttempts int) bool {
	if maxAttempts <= 0 || interval <= 0 {
		return false
	}
	js := fmt.Sprintf(`() => {
		const match = %s;
		const el = Array.from(document.querySelectorAll('button, a, div'))
			.find(e => e.textContent.trim() === match);
		if (!el) return false;
		el.click();
		return true;
	}`, jsString(matchText))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		<-ticker.C
		res, err := d.tab.Timeout(interval * 2).Eval(js)
		if err != nil {
			continue
		}
		if res.Value.Bool() {
			return true
		}
	}
	return false
}

// AwaitPresence installs a MutationObserver racing a timeout and resolves as
// soon as the target exists anywhere in the composed tree.
func (d *Driver) AwaitPresence(targetID string, timeout time.Duration) bool {
	js := fmt.Sprintf(`() => new Promise((resolve) => {
		%s
		const id = %s;
		if (introscanFind(document.body, id)) { resolve(true); return; }
		const observer = new MutationObserver(() => {
			if (introscanFind(document.body, id)) {
				observer.disconnect();
				resolve(true);
			}
		});
		observer.observe(document.body, { childList: true, subtree: true });
		setTimeout(() => { observer.disconnect(); resolve(false); }, %d);
	})`, findScript, jsString(targetID), timeout.Milliseconds())

	res, err := d.tab.Timeout(timeout + 5*time.Second).Eval(js)
	if err != nil {
		log.Printf("[live] presence wait failed: %v", err)
		return false
	}
	if !res.Value.Bool() {
		log.Printf("[live] %q did not appear within %v", targetID, timeout)
		return false
	}
	return true
}

// Snapshot extracts the target's rendered text and the image sources of its
// subtree and every shadow tree beneath it.
func (d *Driver) Snapshot(targetID string) dom.Result {
	js := fmt.Sprintf(`() => {
		%s
		const root = introscanFind(document.body, %s);
		if (!root) return { text: '', images: [] };
		const images = [];
		const collect = (node) => {
			node.querySelectorAll('img').forEach(img => images.push(img.src));
			node.querySelectorAll('*').forEach(el => {
				if (el.shadowRoot) collect(el.shadowRoot);
			});
		};
		collect(root);
		return { text: root.innerText.trim(), images: images };
	}`, findScript, jsString(targetID))

	res, err := d.tab.Timeout(10 * time.Second).Eval(js)
	if err != nil {
		log.Printf("[live] extraction failed: %v", err)
		return dom.ZeroResult()
	}
	payload, err := res.Value.MarshalJSON()
	if err != nil {
		log.Printf("[live] extraction payload malformed: %v", err)
		return dom.ZeroResult()
	}
	var raw dom.Result
	if err := json.Unmarshal(payload, &raw); err != nil {
		log.Printf("[live] extraction payload malformed: %v", err)
		return dom.ZeroResult()
	}
	return normalize(raw)
}

// normalize applies the extraction invariants: no empty and no repeated
// image sources.
func normalize(r dom.Result) dom.Result {
	seen := make(map[string]bool)
	images := []string{}
	for _, src := range r.Images {
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		images = append(images, src)
	}
	return dom.Result{Text: r.Text, Images: images}
}

// Identity reads the identity selectors off the live page, substituting the
// placeholders for misses.
func (d *Driver) Identity() page.Identity {
	id := page.Identity{Name: page.FallbackName, Price: page.FallbackPrice}
	if v := d.selectText(d.selectors.Name); v != "" {
		id.Name = v
	}
	if v := d.selectText(d.selectors.Price); v != "" {
		id.Price = v + "원"
	}
	if v := d.selectAttr(d.selectors.Thumbnail, "src"); v != "" {
		id.Thumbnail = v
	}
	return id
}

func (d *Driver) selectText(selector string) string {
	js := fmt.Sprintf(`() => {
		const el = document.querySelector(%s);
		return el ? el.textContent.trim() : '';
	}`, jsString(selector))
	res, err := d.tab.Timeout(5 * time.Second).Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func (d *Driver) selectAttr(selector, attr string) string {
	js := fmt.Sprintf(`() => {
		const el = document.querySelector(%s);
		return el ? (el.getAttribute(%s) || '') : '';
	}`, jsString(selector), jsString(attr))
	res, err := d.tab.Timeout(5 * time.Second).Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// ShowBanner injects the overlay banner at the top of the live page,
// replacing any previous instance and reserving the body's top offset until
// dismissal.
func (d *Driver) ShowBanner(thumbnailURL, name, price, description string) {
	if name == "" {
		name = page.FallbackName
	}
	if price == "" {
		price = page.FallbackPrice
	}
	if description == "" {
		description = page.FallbackDescription
	}
	js := fmt.Sprintf(`() => {
		const old = document.getElementById(%[1]s);
		if (old) old.remove();

		const banner = document.createElement('div');
		banner.id = %[1]s;
		banner.style.cssText = 'position:fixed;top:0;left:0;width:100%%;' +
			'background:#000;color:#fff;padding:15px;z-index:100000;box-sizing:border-box;';

		const line = document.createElement('div');
		line.style.cssText = 'display:flex;align-items:center;margin-bottom:8px;';

		const thumb = document.createElement('img');
		thumb.src = %[3]s;
		thumb.alt = '제품 썸네일';
		thumb.style.cssText = 'width:60px;height:60px;object-fit:cover;margin-right:10px;';

		const nameSpan = document.createElement('span');
		nameSpan.textContent = %[4]s;
		nameSpan.style.cssText = 'font-size:16px;font-weight:bold;margin-right:10px;';

		const priceSpan = document.createElement('span');
		priceSpan.textContent = %[5]s;
		priceSpan.style.cssText = 'font-size:16px;color:#FFEE58;font-weight:bold;';

		line.append(thumb, nameSpan, priceSpan);

		const desc = document.createElement('div');
		desc.id = %[2]s;
		desc.style.cssText = 'margin-top:8px;font-size:14px;line-height:1.4;';
		desc.textContent = %[6]s;

		const close = document.createElement('button');
		close.textContent = 'X';
		close.style.cssText = 'position:absolute;right:10px;top:10px;background:none;' +
			'color:#fff;border:none;cursor:pointer;font-size:16px;';
		close.addEventListener('click', () => {
			banner.remove();
			document.body.style.paddingTop = '0';
		});

		banner.append(line, desc, close);
		document.body.appendChild(banner);
		document.body.style.paddingTop = banner.offsetHeight + 'px';
	}`,
		jsString(page.BannerID), jsString(page.BannerDescID),
		jsString(thumbnailURL), jsString(name), jsString(price), jsString(description))

	if _, err := d.tab.Timeout(5 * time.Second).Eval(js); err != nil {
		log.Printf("[live] banner injection failed: %v", err)
	}
}

// UpdateDescription replaces the banner's description text; once the banner
// is dismissed this silently does nothing.
func (d *Driver) UpdateDescription(text string) {
	if text == "" {
		text = page.FallbackExtra
	}
	js := fmt.Sprintf(`() => {
		const desc = document.getElementById(%s);
		if (desc) desc.textContent = %s;
	}`, jsString(page.BannerDescID), jsString(text))
	if _, err := d.tab.Timeout(5 * time.Second).Eval(js); err != nil {
		log.Printf("[live] banner update failed: %v", err)
	}
}

// jsString converts a Go string to a JavaScript string literal using JSON
// encoding so every special character is escaped.
func jsString(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}
