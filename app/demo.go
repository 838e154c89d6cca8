package app

// Demo is the workload run when no script is given: a priority inversion
// resolved by donation, a producer/consumer pair on a condition variable and
// a few sleepers.
const Demo = `# priority inversion
lock m
thread low 10
  acquire m
  log "low holds m"
  spin 6
  release m
  log "low released m"
end
thread med 20 after=2
  log "med running"
  spin 4
  log "med done"
end
thread high 30 after=3
  acquire m
  log "high got m"
  release m
end

# producer / consumer
lock q
cond ready
sema items 0
thread consumer 25
  acquire q
  wait ready q
  log "consumer woke"
  release q
  down items
  log "consumer took item"
end
thread producer 15 after=5
  acquire q
  signal ready q
  release q
  up items
  log "producer done"
end

thread sleeper-a 12
  sleep 8
  log "a awake"
end
thread sleeper-b 12
  sleep 4
  log "b awake"
end
`
