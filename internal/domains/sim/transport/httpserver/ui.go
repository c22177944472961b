package httpserver

import "net/http"

const uiIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width,initial-scale=1" />
  <title>Stakeholder Simulation: Sam Richards</title>
  <link rel="stylesheet" href="/ui/styles.css" />
</head>
<body>
  <header class="topbar">
    <div class="brand">
      <div class="logo">SR</div>
      <div>
        <div class="title">Stakeholder Simulation: Sam Richards</div>
        <div class="subtitle">Operations Manager, County Corrections Facility. Persuade him to support a flu vaccination program.</div>
      </div>
    </div>

    <div class="actions">
      <button id="btnNew" class="btn primary">New session</button>
      <button id="btnEnd" class="btn danger" disabled>End session</button>
    </div>
  </header>

  <main class="grid">
    <section class="panel">
      <div class="panelHead">
        <div class="panelTitle">Conversation</div>
        <div class="panelMeta" id="sessionMeta">No session</div>
      </div>

      <div class="content">
        <div id="messages" class="messages"></div>

        <div class="composer">
          <div class="player">
            <audio id="player" controls></audio>
          </div>

          <div class="composerRow">
            <button id="btnRecord" class="btn primary" disabled>Record (5s)</button>
            <button id="btnRetry" class="btn" disabled>Retry reply</button>
          </div>

          <div class="composerRow">
            <input id="fileAudio" type="file" accept="audio/*" disabled />
            <button id="btnUpload" class="btn" disabled>Send file</button>
          </div>

          <div class="hint" id="status">Start a session to begin.</div>
        </div>
      </div>
    </section>

    <aside class="panel">
      <div class="panelHead">
        <div class="panelTitle">Transcript</div>
        <a id="lnkDownload" class="btn small hidden" href="#" title="The filename timestamp is in UTC">Download (UTC)</a>
      </div>
      <pre id="transcript" class="transcript"></pre>
    </aside>
  </main>

  <script src="/ui/app.js"></script>
</body>
</html>
`

const uiStylesCSS = `
:root{
  --bg: #0b0f16;
  --panel: #0f1520;
  --border: rgba(255,255,255,0.10);
  --text: rgba(255,255,255,0.92);
  --muted: rgba(255,255,255,0.65);
  --muted2: rgba(255,255,255,0.45);
  --accent: #4cc9f0;

  --btn: rgba(255,255,255,0.08);
  --btnHover: rgba(255,255,255,0.12);
  --btnPrimary: rgba(76,201,240,0.16);
  --btnPrimaryHover: rgba(76,201,240,0.22);
  --btnDanger: rgba(255, 70, 70, 0.12);
  --btnDangerHover: rgba(255, 70, 70, 0.18);

  --user: rgba(76,201,240,0.10);
  --assistant: rgba(255,255,255,0.06);
  --warn: #f4a261;
}
@media (prefers-color-scheme: light) {
  :root{
    --bg: #f6f7fb;
    --panel: #ffffff;
    --border: rgba(20,30,50,0.12);
    --text: rgba(10,14,20,0.92);
    --muted: rgba(10,14,20,0.65);
    --muted2: rgba(10,14,20,0.48);
    --btn: rgba(10,14,20,0.06);
    --btnHover: rgba(10,14,20,0.10);
    --btnPrimary: rgba(76,201,240,0.20);
    --btnPrimaryHover: rgba(76,201,240,0.28);
    --user: rgba(76,201,240,0.18);
    --assistant: rgba(10,14,20,0.05);
  }
}

*{ box-sizing:border-box; }
html,body{ height:100%; }
body{
  margin:0;
  font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial;
  color: var(--text);
  background: var(--bg);
}

.topbar{
  display:flex;
  align-items:center;
  justify-content:space-between;
  gap:16px;
  padding:12px 14px;
  border-bottom: 1px solid var(--border);
}
.brand{ display:flex; gap:12px; align-items:center; }
.logo{
  width:44px; height:44px;
  border-radius:10px;
  background: var(--btnPrimary);
  display:flex;
  align-items:center;
  justify-content:center;
  font-weight:700;
}
.title{ font-weight:700; }
.subtitle{ font-size:12px; color: var(--muted2); margin-top:2px; }
.actions{ display:flex; gap:8px; align-items:center; }

.grid{
  display:grid;
  grid-template-columns: 1fr 420px;
  gap:12px;
  padding:12px;
  height: calc(100vh - 70px);
}
.panel{
  background: var(--panel);
  border: 1px solid var(--border);
  border-radius: 12px;
  overflow:hidden;
  display:flex;
  flex-direction:column;
  min-height:0;
}
.panelHead{
  padding:12px;
  border-bottom: 1px solid var(--border);
  display:flex;
  align-items:baseline;
  justify-content:space-between;
  gap:12px;
}
.panelTitle{ font-weight:700; }
.panelMeta{ font-size:12px; color: var(--muted2); }

.content{ display:flex; flex-direction:column; min-height:0; height:100%; }
.messages{
  flex: 1 1 auto;
  overflow:auto;
  padding: 12px;
  display:flex;
  flex-direction:column;
  gap:10px;
}
.msg{
  border: 1px solid var(--border);
  border-radius: 12px;
  padding: 10px;
  background: var(--assistant);
}
.msg.user{ background: var(--user); }
.msg.warn{ border-color: var(--warn); color: var(--warn); font-size:12px; }
.msgHead{ font-size:12px; color: var(--muted2); margin-bottom:6px; }
.msgText{ white-space:pre-wrap; }

.composer{
  border-top: 1px solid var(--border);
  padding: 10px;
  display:flex;
  flex-direction:column;
  gap:8px;
}
.composerRow{ display:flex; gap:8px; align-items:center; }
.player audio{ width:100%; }

input{
  width:100%;
  padding:8px;
  border-radius:10px;
  border:1px solid var(--border);
  color: var(--text);
  background: transparent;
}

.btn{
  padding:9px 12px;
  border-radius:10px;
  border: 1px solid var(--border);
  background: var(--btn);
  color: var(--text);
  cursor:pointer;
  text-decoration:none;
  white-space:nowrap;
}
.btn:hover{ background: var(--btnHover); }
.btn.primary{ background: var(--btnPrimary); }
.btn.primary:hover{ background: var(--btnPrimaryHover); }
.btn.danger{ background: var(--btnDanger); }
.btn.danger:hover{ background: var(--btnDangerHover); }
.btn.small{ padding:5px 9px; font-size:12px; }
.btn:disabled{ opacity:0.55; cursor:not-allowed; }
.btn.recording{ background: var(--btnDanger); }
.hidden{ display:none; }

.hint{ font-size:12px; color: var(--muted); }
.hint.error{ color: #ff6b6b; }

.transcript{
  margin:0;
  padding:12px;
  overflow:auto;
  white-space:pre-wrap;
  font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace;
  font-size:13px;
}
`

const uiAppJS = `
(function(){
  "use strict";

  // Overwritten by /api/sim/config before recording is enabled.
  var SAMPLE_RATE = 16000;
  var WINDOW_MS = 5000;

  var el = function(id){ return document.getElementById(id); };
  var ws = null;
  var session = null;
  var capture = null;

  function setStatus(text, isError){
    var s = el("status");
    s.textContent = text;
    s.className = isError ? "hint error" : "hint";
  }

  function setEnabled(on){
    el("btnEnd").disabled = !on;
    el("btnRecord").disabled = !on;
    el("fileAudio").disabled = !on;
    el("btnUpload").disabled = !on;
    el("btnRetry").disabled = !(on && session && session.pending_reply);
  }

  function api(method, path, body){
    var opts = { method: method, credentials: "same-origin" };
    if (body) { opts.body = body; }
    return fetch(path, opts).then(function(r){
      return r.json().then(function(j){ j.status = r.status; return j; });
    });
  }

  function bubble(cls, head, text){
    var d = document.createElement("div");
    d.className = "msg " + cls;
    var h = document.createElement("div");
    h.className = "msgHead";
    h.textContent = head;
    var t = document.createElement("div");
    t.className = "msgText";
    t.textContent = text;
    d.appendChild(h);
    d.appendChild(t);
    el("messages").appendChild(d);
    el("messages").scrollTop = el("messages").scrollHeight;
  }

  function render(view){
    session = view;
    el("messages").innerHTML = "";
    (view.turns || []).forEach(function(t){
      if (t.role === "user") { bubble("user", "Nurse", t.content); }
      else if (t.role === "assistant") { bubble("assistant", "Sam Richards", t.content); }
    });
    el("transcript").textContent = (view.transcript || []).join("\n");
    el("sessionMeta").textContent = "Session " + view.session_id.slice(0, 8) + " • started " + view.created_ts;

    var link = el("lnkDownload");
    if (view.export_filename) {
      link.href = "/api/sim/transcript?filename=" + encodeURIComponent(view.export_filename);
      link.setAttribute("download", view.export_filename);
      link.classList.remove("hidden");
    } else {
      link.classList.add("hidden");
    }
    setEnabled(true);
  }

  function loadConfig(){
    return api("GET", "/api/sim/config").then(function(j){
      if (j.ok) {
        SAMPLE_RATE = j.sample_rate;
        WINDOW_MS = j.window_ms;
        el("btnRecord").textContent = "Record (" + Math.round(WINDOW_MS / 1000) + "s)";
      }
      return j;
    });
  }

  function refresh(){
    return api("GET", "/api/sim/session").then(function(j){
      if (j.ok) { render(j.session); } else { session = null; setEnabled(false); }
      return j;
    });
  }

  function playReply(result){
    if (!result || !result.audio) { return; }
    var p = el("player");
    p.src = "data:" + (result.audio_mime || "audio/mpeg") + ";base64," + result.audio;
    p.play().catch(function(){});
  }

  function handleTurn(j){
    (j.result && j.result.warnings || []).forEach(function(w){ bubble("warn", "warning", w); });
    if (j.ok) {
      playReply(j.result);
      setStatus("Turn " + j.result.turn + " complete.");
    } else {
      setStatus((j.stage ? j.stage + " failed: " : "") + j.error, true);
    }
    return refresh();
  }

  function connectStream(){
    if (ws) { ws.close(); }
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    ws = new WebSocket(proto + location.host + "/api/sim/stream");
    ws.binaryType = "arraybuffer";
    ws.onmessage = function(ev){
      var m = JSON.parse(ev.data);
      if (m.type === "info") {
        if (m.message === "recording") { setStatus("Recording… speak now."); }
      } else if (m.type === "warning") {
        bubble("warn", "warning", m.message);
      } else if (m.type === "turn") {
        handleTurn({ ok: true, result: m.result });
      } else if (m.type === "error") {
        handleTurn({ ok: false, error: m.message, stage: m.stage });
      }
    };
    ws.onclose = function(){ ws = null; };
  }

  // Downsample a mono Float32Array from the device rate to SAMPLE_RATE.
  function downsample(buf, fromRate){
    if (fromRate === SAMPLE_RATE) { return buf; }
    var ratio = fromRate / SAMPLE_RATE;
    var out = new Float32Array(Math.floor(buf.length / ratio));
    for (var i = 0; i < out.length; i++) { out[i] = buf[Math.floor(i * ratio)]; }
    return out;
  }

  function startCapture(){
    return navigator.mediaDevices.getUserMedia({ audio: { channelCount: 1 } }).then(function(stream){
      var ctx = new (window.AudioContext || window.webkitAudioContext)();
      var src = ctx.createMediaStreamSource(stream);
      var proc = ctx.createScriptProcessor(4096, 1, 1);
      proc.onaudioprocess = function(ev){
        if (!ws || ws.readyState !== WebSocket.OPEN) { return; }
        var data = downsample(ev.inputBuffer.getChannelData(0), ctx.sampleRate);
        ws.send(new Float32Array(data).buffer);
      };
      src.connect(proc);
      proc.connect(ctx.destination);
      capture = { stream: stream, ctx: ctx, proc: proc };
    });
  }

  function stopCapture(){
    if (!capture) { return; }
    capture.proc.disconnect();
    capture.stream.getTracks().forEach(function(t){ t.stop(); });
    capture.ctx.close();
    capture = null;
  }

  el("btnNew").onclick = function(){
    api("POST", "/api/sim/session").then(function(j){
      if (!j.ok) { setStatus(j.error, true); return; }
      render(j.session);
      connectStream();
      setStatus("Session started. Record or upload your opening line.");
    });
  };

  el("btnEnd").onclick = function(){
    api("DELETE", "/api/sim/session").then(function(){
      if (ws) { ws.close(); }
      session = null;
      el("messages").innerHTML = "";
      el("transcript").textContent = "";
      el("lnkDownload").classList.add("hidden");
      el("sessionMeta").textContent = "No session";
      setEnabled(false);
      setStatus("Session ended.");
    });
  };

  el("btnRecord").onclick = function(){
    if (!ws) { connectStream(); }
    var btn = el("btnRecord");
    btn.disabled = true;
    btn.classList.add("recording");
    startCapture().then(function(){
      ws.send(JSON.stringify({ type: "record" }));
      setTimeout(function(){
        stopCapture();
        btn.classList.remove("recording");
        setStatus("Thinking…");
      }, WINDOW_MS + 250);
    }).catch(function(err){
      btn.disabled = false;
      btn.classList.remove("recording");
      setStatus("Microphone unavailable: " + err, true);
      if (ws) { ws.send(JSON.stringify({ type: "status", message: "microphone unavailable" })); }
    });
  };

  el("btnUpload").onclick = function(){
    var f = el("fileAudio").files[0];
    if (!f) { setStatus("Choose an audio file first.", true); return; }
    var fd = new FormData();
    fd.append("audio", f, f.name);
    setStatus("Uploading…");
    el("btnUpload").disabled = true;
    api("POST", "/api/sim/turn", fd).then(handleTurn);
  };

  el("btnRetry").onclick = function(){
    setStatus("Retrying…");
    api("POST", "/api/sim/retry").then(handleTurn);
  };

  loadConfig().then(refresh).then(function(j){
    if (j.ok) {
      connectStream();
      setStatus("Session restored.");
    }
  });
})();
`

func registerUI(mux *http.ServeMux) {
	if mux == nil {
		return
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui", http.StatusFound)
	})

	mux.HandleFunc("GET /ui", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uiIndexHTML))
	})

	mux.HandleFunc("GET /ui/styles.css", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uiStylesCSS))
	})

	mux.HandleFunc("GET /ui/app.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(uiAppJS))
	})
}
